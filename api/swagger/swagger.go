package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Admission API",
        "description": "Student admission intake, OTP verification, edit windows, and review workflow",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Admissions", "description": "Draft intake and OTP verification"},
        {"name": "Review", "description": "Counselor and admin review workflow"},
        {"name": "Edits", "description": "Single-use student edit windows"},
        {"name": "Files", "description": "Signed artifact downloads"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/admissions/init": {
            "post": {
                "tags": ["Admissions"],
                "summary": "Submit a draft admission with uploads",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "payload", "in": "formData", "type": "string", "required": true, "description": "Draft JSON"},
                    {"name": "photo", "in": "formData", "type": "file"},
                    {"name": "pan", "in": "formData", "type": "file"},
                    {"name": "aadhaar", "in": "formData", "type": "file"},
                    {"name": "studentSignature", "in": "formData", "type": "file"},
                    {"name": "parentSignature", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Pending session created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admissions/verify": {
            "post": {
                "tags": ["Admissions"],
                "summary": "Verify one OTP channel for a pending submission",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VerifyRequest"}}
                ],
                "responses": {
                    "200": {"description": "Step result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid or expired code", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Session not found or already completed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admissions/{id}/review": {
            "get": {
                "tags": ["Review"],
                "summary": "Fetch the review projection",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admissions/{id}/request-edit": {
            "post": {
                "tags": ["Review"],
                "summary": "Open a single-use edit window",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RequestEditRequest"}}
                ],
                "responses": {
                    "200": {"description": "Edit window opened", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid sections or fields", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admissions/{id}/edit-data": {
            "get": {
                "tags": ["Edits"],
                "summary": "Fetch prefill data for an active edit window",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "No active edit window", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admissions/{id}/apply-edit": {
            "post": {
                "tags": ["Edits"],
                "summary": "Apply corrections and consume the edit window",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApplyEditRequest"}}
                ],
                "responses": {
                    "200": {"description": "Edit applied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "No active edit window", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admissions/{id}/submit-to-admin": {
            "post": {
                "tags": ["Review"],
                "summary": "Record the fee and forward to the admin",
                "consumes": ["application/x-www-form-urlencoded"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "feeAmount", "in": "formData", "type": "number", "required": true},
                    {"name": "feeMode", "in": "formData", "type": "string", "required": true, "enum": ["cash", "online"]}
                ],
                "responses": {
                    "200": {"description": "Fee recorded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid fee", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No longer pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admissions/{id}/approve": {
            "post": {
                "tags": ["Review"],
                "summary": "Approve an admission",
                "produces": ["text/html"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Confirmation page"},
                    "412": {"description": "Fee not recorded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/files/{token}": {
            "get": {
                "tags": ["Files"],
                "summary": "Download a stored file via a signed token",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File content"},
                    "400": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "File not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "VerifyRequest": {
            "type": "object",
            "required": ["pendingId", "otp", "channel"],
            "properties": {
                "pendingId": {"type": "string"},
                "otp": {"type": "string"},
                "channel": {"type": "string", "enum": ["mobile", "email"]}
            }
        },
        "RequestEditRequest": {
            "type": "object",
            "properties": {
                "sections": {"type": "array", "items": {"type": "string"}},
                "fields": {"type": "object", "additionalProperties": {"type": "string", "enum": ["ok", "fix"]}},
                "notes": {"type": "string"}
            }
        },
        "ApplyEditRequest": {
            "type": "object",
            "required": ["updated"],
            "properties": {
                "updated": {"type": "object", "description": "Section-keyed partial update"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
