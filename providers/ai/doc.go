// Package ai defines the vendor-neutral chat model: messages, tool calls,
// replies and stream events, together with the pieces every vendor adapter
// shares.
//
//   - [Service] is the operation surface callers depend on.
//   - [Codec] and [DeltaParser] are the vendor-specific halves; [Adapter]
//     joins a Codec to the HTTP transport and stream framing.
//   - [ChatStream] delivers [StreamEvent] values with exactly one terminal
//     event and prompt cancellation.
//   - [Error] is the closed error taxonomy; [ClassifyHTTP] and [Classify]
//     map transport outcomes into it.
//   - [ExtractTextContent] and [ComposeResponse] normalize heterogeneous
//     content shapes into display text.
package ai
