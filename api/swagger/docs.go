// Package swagger registers the OpenAPI document served under /swagger.
// Regenerate the paths section with `swag init -g cmd/api/main.go -o api/swagger`.
package swagger

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
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Liveness and database reachability",
                "responses": {"200": {"description": "OK"}, "503": {"description": "Database unreachable"}}
            }
        },
        "/api/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Current user",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/purchase-requests": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["purchase-requests"],
                "summary": "List purchase requests",
                "parameters": [
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "string", "name": "region", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["purchase-requests"],
                "summary": "Create purchase request",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/purchase-requests/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["purchase-requests"],
                "summary": "Get purchase request",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json", "multipart/form-data"],
                "tags": ["purchase-requests"],
                "summary": "Edit or resubmit purchase request",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["purchase-requests"],
                "summary": "Delete purchase request",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}
            }
        },
        "/api/purchase-requests/{id}/approve": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["purchase-requests"], "summary": "Approve purchase request",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/api/purchase-requests/{id}/reject": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["purchase-requests"], "summary": "Reject purchase request",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Note required"}}}
        },
        "/api/purchase-requests/{id}/request-revision": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["purchase-requests"], "summary": "Request revision",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Note required"}}}
        },
        "/api/purchase-requests/{id}/process": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["purchase-requests"], "summary": "Begin payment processing",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/purchase-requests/{id}/complete": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["purchase-requests"], "summary": "Complete purchase request",
                "consumes": ["application/json", "multipart/form-data"],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/purchase-requests/{id}/cancel": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["purchase-requests"], "summary": "Cancel purchase request",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/ledger": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["ledger"], "summary": "List ledger entries",
                "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["ledger"], "summary": "Create manual ledger entry",
                "responses": {"201": {"description": "Created"}, "403": {"description": "Forbidden"}}}
        },
        "/api/ledger/summary": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["ledger"], "summary": "Get ledger summary",
                "parameters": [
                    {"type": "string", "name": "region", "in": "query"},
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/api/ledger/{id}": {
            "delete": {"security": [{"BearerAuth": []}], "tags": ["ledger"], "summary": "Delete manual ledger entry",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        },
        "/api/categories": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["categories"], "summary": "List categories",
                "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["categories"], "summary": "Create category",
                "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}
        },
        "/api/budgets": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["budgets"], "summary": "List budget usage",
                "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["budgets"], "summary": "Set budget ceiling",
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/budgets/usage": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["budgets"], "summary": "Get budget usage",
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/budgets/check": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["budgets"], "summary": "Check amount against budget",
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/budgets/{id}": {
            "delete": {"security": [{"BearerAuth": []}], "tags": ["budgets"], "summary": "Delete budget ceiling",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/api/audit-logs": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["audit"], "summary": "Get audit logs",
                "responses": {"200": {"description": "OK"}}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
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
	Schemes:          []string{},
	Title:            "Portal Warga API",
	Description:      "Purchase request approval, ledger and budget tracking for the residents' portal.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
