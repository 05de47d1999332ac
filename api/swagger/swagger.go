package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Dojoworks Renewals API",
        "description": "Membership renewal lifecycle and expiration tracking",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Renewals", "description": "Renewal lifecycle and expiration tracking"},
        {"name": "Reports", "description": "Asynchronous renewal report exports"}
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
        "/renewals": {
            "get": {
                "tags": ["Renewals"],
                "summary": "List renewals",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Renewals"],
                "summary": "Register a renewal",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRenewalRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/renewals/summary": {
            "get": {
                "tags": ["Renewals"],
                "summary": "Lifecycle partition (paid / active / expired)",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/renewals/expiring": {
            "get": {
                "tags": ["Renewals"],
                "summary": "Renewals inside the attention window",
                "parameters": [
                    {"name": "days", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/renewals/expiring/grouped": {
            "get": {
                "tags": ["Renewals"],
                "summary": "Prioritized attention buckets",
                "parameters": [
                    {"name": "days", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/renewals/{id}": {
            "get": {
                "tags": ["Renewals"],
                "summary": "Get renewal detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "patch": {
                "tags": ["Renewals"],
                "summary": "Partially update a renewal",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateRenewalRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Renewals"],
                "summary": "Delete a renewal",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No content"}
                }
            }
        },
        "/renewals/{id}/quit": {
            "post": {
                "tags": ["Renewals"],
                "summary": "Resolve an expiring renewal as quit",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ResolveQuitRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/renewals/{id}/renew": {
            "post": {
                "tags": ["Renewals"],
                "summary": "Roll a renewal into a successor period",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ResolveRenewRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/renewals/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue a renewal report export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/renewals/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished export by signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "CreateRenewalRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "duration_months": {"type": "integer"},
                "payment_date": {"type": "string", "format": "date-time"},
                "expiration_date": {"type": "string", "format": "date-time"},
                "amount_due": {"type": "number"},
                "amount_paid": {"type": "number"},
                "number_of_payments": {"type": "integer"},
                "number_of_classes": {"type": "integer"},
                "paid_to": {"type": "string"}
            },
            "required": ["student_id", "duration_months", "payment_date", "expiration_date"]
        },
        "UpdateRenewalRequest": {
            "type": "object",
            "properties": {
                "duration_months": {"type": "integer"},
                "payment_date": {"type": "string", "format": "date-time"},
                "expiration_date": {"type": "string", "format": "date-time"},
                "amount_due": {"type": "number"},
                "amount_paid": {"type": "number"},
                "number_of_payments": {"type": "integer"},
                "number_of_classes": {"type": "integer"},
                "paid_to": {"type": "string"}
            }
        },
        "ResolveQuitRequest": {
            "type": "object",
            "properties": {
                "notes": {"type": "string"}
            }
        },
        "ResolveRenewRequest": {
            "type": "object",
            "properties": {
                "duration_months": {"type": "integer"},
                "amount_due": {"type": "number"},
                "amount_paid": {"type": "number"},
                "number_of_payments": {"type": "integer"},
                "number_of_classes": {"type": "integer"},
                "paid_to": {"type": "string"}
            }
        },
        "ReportRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["expiring", "summary", "all"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "window_days": {"type": "integer"},
                "student_id": {"type": "string"}
            },
            "required": ["type", "format"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
