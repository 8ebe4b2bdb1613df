// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the commands it runs against a form: batch
// evaluation, ordering, checking and the preview server. It is decoupled
// from any specific entrypoint like a CLI.
package app
