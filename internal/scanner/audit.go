package scanner

// auditScript runs inside the scanned page and returns an array of issue
// objects matching models.ScanIssue (minus the url field, filled in by the
// caller). Checks cover the common WCAG 2.1 A/AA failures detectable from
// the DOM alone.
const auditScript = `(() => {
  const issues = [];
  const snippet = (el) => {
    const html = el.outerHTML || '';
    return html.length > 160 ? html.slice(0, 160) + '…' : html;
  };
  const push = (type, impact, code, wcag, message, el, suggestion) => {
    issues.push({
      type, impact, code, wcag, message, suggestion,
      element: el ? snippet(el) : undefined,
    });
  };

  // Document language
  const lang = document.documentElement.getAttribute('lang');
  if (!lang || !lang.trim()) {
    push('error', 'serious', 'html-has-lang', '3.1.1',
      'The <html> element has no lang attribute.',
      null,
      'Add lang="…" to the <html> element so screen readers pick the right voice.');
  }

  // Page title
  if (!document.title || !document.title.trim()) {
    push('error', 'serious', 'document-title', '2.4.2',
      'The page has no title.',
      null,
      'Add a descriptive <title> element.');
  }

  // Images without alternative text
  for (const img of document.querySelectorAll('img')) {
    if (!img.hasAttribute('alt') && img.getAttribute('role') !== 'presentation') {
      push('error', 'critical', 'image-alt', '1.1.1',
        'Image has no alt attribute.',
        img,
        'Add alt text describing the image, or alt="" if it is decorative.');
    }
  }

  // Links and buttons without an accessible name
  const accessibleName = (el) =>
    (el.getAttribute('aria-label') || el.textContent || el.getAttribute('title') || '').trim() ||
    el.querySelector('img[alt]')?.getAttribute('alt')?.trim();
  for (const link of document.querySelectorAll('a[href]')) {
    if (!accessibleName(link)) {
      push('error', 'serious', 'link-name', '2.4.4',
        'Link has no accessible name.',
        link,
        'Give the link text content or an aria-label.');
    }
  }
  for (const button of document.querySelectorAll('button, [role="button"]')) {
    if (!accessibleName(button)) {
      push('error', 'critical', 'button-name', '4.1.2',
        'Button has no accessible name.',
        button,
        'Give the button text content or an aria-label.');
    }
  }

  // Form controls without labels
  for (const input of document.querySelectorAll('input, select, textarea')) {
    if (input.type === 'hidden' || input.type === 'submit' || input.type === 'button') continue;
    const labelled = input.labels?.length > 0 ||
      input.hasAttribute('aria-label') ||
      input.hasAttribute('aria-labelledby') ||
      input.hasAttribute('title');
    if (!labelled) {
      push('error', 'critical', 'label', '1.3.1',
        'Form control has no associated label.',
        input,
        'Associate a <label> or add an aria-label.');
    }
  }

  // Skipped heading levels
  let lastLevel = 0;
  for (const heading of document.querySelectorAll('h1, h2, h3, h4, h5, h6')) {
    const level = Number(heading.tagName[1]);
    if (lastLevel && level > lastLevel + 1) {
      push('warning', 'moderate', 'heading-order', '1.3.1',
        'Heading level h' + level + ' skips over h' + (lastLevel + 1) + '.',
        heading,
        'Use heading levels in order without skipping.');
    }
    lastLevel = level;
  }
  if (lastLevel === 0 && document.body && document.body.textContent.trim()) {
    push('warning', 'moderate', 'page-has-heading', '1.3.1',
      'The page has no headings.',
      null,
      'Structure the page content with headings.');
  }

  // Positive tabindex breaks natural tab order
  for (const el of document.querySelectorAll('[tabindex]')) {
    if (Number(el.getAttribute('tabindex')) > 0) {
      push('warning', 'serious', 'tabindex', '2.4.3',
        'Element uses a positive tabindex.',
        el,
        'Use tabindex="0" and source order instead of positive values.');
    }
  }

  // Iframes without titles
  for (const frame of document.querySelectorAll('iframe')) {
    if (!(frame.getAttribute('title') || '').trim()) {
      push('warning', 'serious', 'frame-title', '4.1.2',
        'Frame has no title attribute.',
        frame,
        'Add a title describing the frame content.');
    }
  }

  // Autoplaying media
  for (const media of document.querySelectorAll('video[autoplay], audio[autoplay]')) {
    push('info', 'moderate', 'no-autoplay-audio', '1.4.2',
      'Media is set to autoplay.',
      media,
      'Avoid autoplay, or provide an obvious pause control.');
  }

  return issues;
})()`
