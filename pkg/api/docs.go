package api

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Get the health status of the API",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/kv": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "List all live keys in sorted order",
                "produces": ["application/json"],
                "tags": ["kv"],
                "summary": "List keys",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.KeysResponse"}}
                }
            }
        },
        "/kv/{key}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Retrieve the raw value stored under key",
                "produces": ["application/octet-stream"],
                "tags": ["kv"],
                "summary": "Get a value by key",
                "parameters": [
                    {"type": "string", "description": "Key", "name": "key", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "string"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            },
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Store the request body under key. mode is upsert (default), insert or update.",
                "consumes": ["application/octet-stream"],
                "produces": ["application/json"],
                "tags": ["kv"],
                "summary": "Set a key",
                "parameters": [
                    {"type": "string", "description": "Key", "name": "key", "in": "path", "required": true},
                    {"type": "string", "description": "Set mode", "name": "mode", "in": "query"},
                    {"description": "Value", "name": "body", "in": "body", "required": true, "schema": {"type": "array", "items": {"type": "integer"}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.SetResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Delete key, reporting whether it existed",
                "produces": ["application/json"],
                "tags": ["kv"],
                "summary": "Delete a key",
                "parameters": [
                    {"type": "string", "description": "Key", "name": "key", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.DeleteResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/stats": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Get the live key count and log file size",
                "produces": ["application/json"],
                "tags": ["diagnostics"],
                "summary": "Get store statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.StatsResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.APIResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"type": "string"},
                "success": {"type": "boolean"}
            }
        },
        "api.DeleteResponse": {
            "type": "object",
            "properties": {"existed": {"type": "boolean"}}
        },
        "api.KeysResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "keys": {"type": "array", "items": {"type": "string"}}
            }
        },
        "api.SetResponse": {
            "type": "object",
            "properties": {"changed": {"type": "boolean"}}
        },
        "api.StatsResponse": {
            "type": "object",
            "properties": {
                "data_size": {"type": "integer"},
                "keys": {"type": "integer"},
                "path": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "KVDB REST API",
	Description:      "REST API over a single-file durable key-value store.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
