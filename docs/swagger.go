// Package docs registers the PulseFlow API description with swag so that
// gin-swagger can serve it under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "PulseFlow team",
            "url": "https://pulseflow.com/support",
            "email": "support@pulseflow.com"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/register": {
            "post": {
                "tags": ["Users"],
                "summary": "Register a user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.AuthResponse"}},
                    "400": {"description": "Invalid input"},
                    "409": {"description": "User with this email already exists"}
                }
            }
        },
        "/login": {
            "post": {
                "tags": ["Users"],
                "summary": "Log in",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.AuthResponse"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/profile": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Profile"],
                "summary": "Profile of the caller",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.UserResponse"}}, "404": {"description": "User not found"}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["Profile"],
                "summary": "Change the full name",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.UpdateProfileRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.UserResponse"}}, "400": {"description": "Invalid input"}, "404": {"description": "User not found"}}
            }
        },
        "/profile/password": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["Profile"],
                "summary": "Change the password",
                "consumes": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.ChangePasswordRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Current password is incorrect"}}
            }
        },
        "/feedback": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Feedback"],
                "summary": "Newest feedback messages",
                "parameters": [
                    {"in": "query", "name": "limit", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid limit"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Feedback"],
                "summary": "Send feedback",
                "consumes": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/handler.FeedbackRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid request"}}
            }
        },
        "/workspace": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Workspace"],
                "summary": "Boards, tasks by column, overlay and unread count of the caller",
                "parameters": [
                    {"in": "query", "name": "reload", "type": "boolean"}
                ],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/boards": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Boards"],
                "summary": "Create a board",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid request"}}
            }
        },
        "/boards/{id}/share": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Board Sharing"],
                "summary": "Share a board with an organization address",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true}
                ],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid request"}, "404": {"description": "Not found"}}
            }
        },
        "/tasks": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Tasks"],
                "summary": "Create a task",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid request"}}
            }
        },
        "/drag/drop": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Drag"],
                "summary": "Drop the dragged task",
                "responses": {"200": {"description": "OK"}, "400": {"description": "no drag in progress"}}
            }
        },
        "/notifications": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Notifications"],
                "summary": "Notification feed with tasks due soon",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/stream": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Realtime"],
                "summary": "Server-sent change events",
                "produces": ["text/event-stream"],
                "parameters": [
                    {"in": "query", "name": "feedback", "type": "boolean"}
                ],
                "responses": {"200": {"description": "OK"}, "502": {"description": "Failed to subscribe to changes"}}
            }
        }
    },
    "definitions": {
        "handler.RegisterRequest": {
            "type": "object",
            "required": ["email", "full_name", "password"],
            "properties": {
                "email": {"type": "string"},
                "full_name": {"type": "string", "minLength": 2},
                "password": {"type": "string", "minLength": 6}
            }
        },
        "handler.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handler.UserResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "full_name": {"type": "string"}
            }
        },
        "handler.UpdateProfileRequest": {
            "type": "object",
            "required": ["full_name"],
            "properties": {
                "full_name": {"type": "string", "minLength": 2}
            }
        },
        "handler.ChangePasswordRequest": {
            "type": "object",
            "required": ["current_password", "new_password"],
            "properties": {
                "current_password": {"type": "string"},
                "new_password": {"type": "string", "minLength": 6}
            }
        },
        "handler.FeedbackRequest": {
            "type": "object",
            "required": ["message"],
            "properties": {
                "message": {"type": "string", "maxLength": 2000}
            }
        },
        "handler.AuthResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/handler.UserResponse"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "PulseFlow API",
	Description:      "Collaborative task boards with teams, sharing and live notifications.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
