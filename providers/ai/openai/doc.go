// Package openai implements the codec for OpenAI-compatible chat completion
// APIs. One [Codec] serves every compatible vendor; what differs between
// them (base URL, auth requirement, temperature overrides, image
// generation) is captured by a [Policy] value, with presets for ChatGPT,
// LM Studio, Groq, xAI, Mistral, OpenRouter and DeepSeek.
//
// Streaming uses SSE with the [DONE] sentinel. Chain-of-thought deltas
// (reasoning_content or reasoning) are tagged with the reasoning role, and
// tool-call fragments are merged per index and delivered on the terminal
// event.
package openai
