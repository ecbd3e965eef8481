//go:build swagger

// Package docs holds the OpenAPI document served under /swagger/. Regenerate
// with `swag init -g cmd/storyd/docs.go -o internal/httpapi/docs`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "storyd maintainers"},
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/generate_story": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Write a story from one or more pictures",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.StoryRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Story"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/generate_frame": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Render one illustration frame",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.FrameRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Frame"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "422": {"description": "Content policy", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/narrate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Synthesize narration audio",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.NarrateRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.Narration"}}}
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "summary": "Provider configuration and cache counters",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}}}
            }
        }
    },
    "definitions": {
        "types.StoryRequest": {"type": "object", "properties": {
            "image": {"type": "string"}, "images": {"type": "array", "items": {"type": "string"}},
            "genre": {"type": "string", "example": "fantasy"}, "length": {"type": "integer", "example": 500}}},
        "types.Story": {"type": "object", "properties": {
            "success": {"type": "boolean"}, "story": {"type": "string"}, "image_description": {"type": "string"}}},
        "types.FrameRequest": {"type": "object", "properties": {"prompt": {"type": "string"}}},
        "types.Frame": {"type": "object", "properties": {
            "success": {"type": "boolean"}, "image": {"type": "string"}, "cached": {"type": "boolean"}}},
        "types.NarrateRequest": {"type": "object", "properties": {"text": {"type": "string"}, "lang": {"type": "string", "example": "en"}}},
        "types.Narration": {"type": "object", "properties": {"success": {"type": "boolean"}, "audio": {"type": "string"}}},
        "types.ErrorResponse": {"type": "object", "properties": {
            "success": {"type": "boolean"}, "error": {"type": "string"}, "code": {"type": "integer"},
            "kind": {"type": "string"}, "retry_after": {"type": "integer"}, "disable_stop_motion": {"type": "boolean"}}},
        "types.HealthResponse": {"type": "object", "properties": {
            "status": {"type": "string"}, "services": {"type": "object", "additionalProperties": {"type": "boolean"}}, "providers": {"type": "object"}, "cache": {"type": "object"},
            "image_provider": {"type": "string"}, "uptime_seconds": {"type": "integer"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "storyd API",
	Description:      "Turns a picture into a short illustrated children's story.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
