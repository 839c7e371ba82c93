package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "TimeGrid API",
        "description": "Workforce attendance reconciliation and anomaly detection engine",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http", "https"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication and session management"},
        {"name": "Attendance", "description": "Punch ingestion and records"},
        {"name": "Corrections", "description": "Manual corrections and approvals"},
        {"name": "Anomalies", "description": "Anomaly reports, dashboard and exports"},
        {"name": "Settings", "description": "Tenant attendance policy"},
        {"name": "Users", "description": "Account management"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Record a punch",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePunchRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Attendance"],
                "summary": "List attendance records",
                "parameters": [
                    {"name": "employeeId", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "hasAnomaly", "in": "query", "type": "boolean"},
                    {"name": "dateFrom", "in": "query", "type": "string"},
                    {"name": "dateTo", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/webhook": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Device punch webhook",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/WebhookPunchRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/{id}/correct": {
            "put": {
                "tags": ["Corrections"],
                "summary": "Correct a punch",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CorrectPunchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/{id}/approval": {
            "post": {
                "tags": ["Corrections"],
                "summary": "Approve or reject a pending correction",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveCorrectionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/anomalies": {
            "get": {
                "tags": ["Anomalies"],
                "summary": "List anomalies with severity scores",
                "parameters": [
                    {"name": "employeeId", "in": "query", "type": "string"},
                    {"name": "anomalyType", "in": "query", "type": "string"},
                    {"name": "dateFrom", "in": "query", "type": "string"},
                    {"name": "dateTo", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/anomalies/dashboard": {
            "get": {
                "tags": ["Anomalies"],
                "summary": "Anomaly dashboard aggregate",
                "parameters": [
                    {"name": "dateFrom", "in": "query", "type": "string"},
                    {"name": "dateTo", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/anomalies/export": {
            "post": {
                "tags": ["Anomalies"],
                "summary": "Export anomalies as CSV, JSON or PDF",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/settings/attendance": {
            "get": {
                "tags": ["Settings"],
                "summary": "Get tenant attendance settings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Settings"],
                "summary": "Update tenant attendance settings",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateSettingsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreatePunchRequest": {
            "type": "object",
            "properties": {
                "employeeId": {"type": "string"},
                "deviceId": {"type": "string"},
                "siteId": {"type": "string"},
                "timestamp": {"type": "string"},
                "type": {"type": "string", "enum": ["IN", "OUT"]},
                "method": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"}
            },
            "required": ["employeeId", "timestamp", "type", "method"]
        },
        "WebhookPunchRequest": {
            "type": "object",
            "properties": {
                "serialNumber": {"type": "string"},
                "matricule": {"type": "string"},
                "timestamp": {"type": "string"},
                "type": {"type": "string", "enum": ["IN", "OUT"]}
            },
            "required": ["serialNumber", "matricule", "timestamp", "type"]
        },
        "CorrectPunchRequest": {
            "type": "object",
            "properties": {
                "timestamp": {"type": "string"},
                "note": {"type": "string"},
                "forceApproval": {"type": "boolean"}
            },
            "required": ["timestamp", "note"]
        },
        "ResolveCorrectionRequest": {
            "type": "object",
            "properties": {
                "approve": {"type": "boolean"},
                "note": {"type": "string"}
            },
            "required": ["approve"]
        },
        "UpdateSettingsRequest": {
            "type": "object",
            "properties": {
                "lateToleranceEntry": {"type": "integer"},
                "earlyToleranceExit": {"type": "integer"},
                "overtimeRoundingMinutes": {"type": "integer"},
                "workingDays": {"type": "array", "items": {"type": "integer"}},
                "requireScheduleForPunch": {"type": "boolean"},
                "holidayOvertimeEnabled": {"type": "boolean"}
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
