// Package local runs models stored on disk instead of calling an HTTP API.
//
// A model is a folder. [ResolveModelPath] turns the configured model into an
// absolute folder path, [ClassifyModel] decides whether it is a text, vision
// or image-generation model from the files it contains, and a process-wide
// [Cache] loads each folder at most once through a pluggable [Engine]. The
// bundled [ExecEngine] drives an external runner binary and streams its
// standard output.
//
// [Service] implements ai.Service so on-device models are interchangeable
// with remote vendors; it has no model catalog and no HTTP request form.
package local
