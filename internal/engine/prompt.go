package engine

// GaugePrompt is sent with every image. Replies are decoded by internal/parser.
const GaugePrompt = `You are shown a photo of an analog gauge.
Read the gauge and report:
- min_value: the lowest value printed on the scale
- max_value: the highest value printed on the scale
- reading_value: the value the needle currently points to
- units: the unit of measurement printed on the dial, exactly as written

Respond with a single JSON object with exactly these four keys and nothing else.
Numbers must be JSON numbers, units must be a JSON string.
Example: {"min_value": 0, "max_value": 100, "reading_value": 42.5, "units": "psi"}`
