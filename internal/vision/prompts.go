package vision

// Prompts instruct the model to answer with bare JSON so responses can be
// unmarshalled directly. parseModelJSON still strips markdown fences because
// smaller models ignore the instruction.

const imagePrompt = `You are an accessibility assistant. Describe the attached image for a blind or low-vision user.

Respond with JSON only, in exactly this shape:
{
  "description": "<2-3 sentence detailed description of the image>",
  "altText": "<concise alt attribute text, at most 125 characters, no leading 'image of'>"
}`

const videoPrompt = `You are an accessibility assistant. Produce closed captions for the attached video, including relevant non-speech sounds in brackets.

Respond with JSON only: an array of caption segments, each in exactly this shape:
{"index": <segment number starting at 1>, "start": <start time in seconds>, "end": <end time in seconds>, "text": "<caption text, at most 80 characters>"}`
