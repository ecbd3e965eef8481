package main

// General API documentation for swaggo. Generate with
// `swag init -g cmd/storyd/docs.go -o internal/httpapi/docs` and build with
// `-tags swagger` to serve the UI.
//
// @title           storyd API
// @version         1.0
// @description     Turns a picture into a short illustrated children's story:
// @description     story text from Gemini, frames from Stability AI or a tunnel server, narration audio.
//
// @contact.name   storyd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
