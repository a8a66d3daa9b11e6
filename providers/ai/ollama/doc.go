// Package ollama implements the native Ollama API codec.
//
// Chat turns go to /chat; prompts that carry images, or models whose name
// marks them as image generators, go to /generate. Both stream NDJSON. Image
// generators answer with "IMAGE_BASE64:" chunks that are collected and
// delivered once, on the terminal event.
package ollama
