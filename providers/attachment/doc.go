// Package attachment parses the <image-uuid> and <file-uuid> markers that
// chat messages embed, and resolves them through a caller-supplied
// [Resolver]. Codecs use [Resolve] to obtain the outgoing text (markers
// removed, file contents appended) and the inline images.
package attachment
