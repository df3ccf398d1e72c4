package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "TutorBase Booking API",
        "description": "Availability windows, slot discovery, and tutoring session booking",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Availability", "description": "Tutor weekly windows and slot previews"},
        {"name": "Sessions", "description": "Single and trial session booking"},
        {"name": "Subscriptions", "description": "Recurring series booking and replanning"},
        {"name": "Parents", "description": "Guardian-facing lookups"},
        {"name": "Exports", "description": "Tutor schedule downloads"}
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
                "summary": "Readiness check (Postgres and Redis ping)",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/api/v1/tutors/{id}/windows": {
            "get": {
                "tags": ["Availability"],
                "summary": "List a tutor's weekly windows",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Availability"],
                "summary": "Replace a tutor's weekly windows",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "array", "items": {"$ref": "#/definitions/WindowInput"}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "INVALID_WINDOW", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/tutors/{id}/slots": {
            "get": {
                "tags": ["Availability"],
                "summary": "Preview bookable slot starts",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "integer", "description": "epoch ms, defaults to now"},
                    {"name": "to", "in": "query", "type": "integer", "description": "epoch ms, defaults to now + horizon"},
                    {"name": "duration", "in": "query", "required": true, "type": "integer", "description": "session length in minutes"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/tutors/{id}/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List a tutor's booked sessions",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "integer"},
                    {"name": "to", "in": "query", "type": "integer"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/tutors/{id}/sessions/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a tutor's schedule as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "from", "in": "query", "required": true, "type": "integer"},
                    {"name": "to", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "File attachment"}
                }
            }
        },
        "/api/v1/sessions": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Book a single or trial session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "SLOT_UNAVAILABLE or TRIAL_LIMIT_REACHED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/sessions/{id}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Fetch one session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Sessions"],
                "summary": "Cancel a session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Cancelled session", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "MODIFICATION_NOT_ALLOWED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/sessions/{id}/schedule": {
            "patch": {
                "tags": ["Sessions"],
                "summary": "Reschedule a session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RescheduleSessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "SLOT_UNAVAILABLE", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "MODIFICATION_NOT_ALLOWED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/sessions/{id}/status": {
            "patch": {
                "tags": ["Sessions"],
                "summary": "Mark a past session completed or no_show",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetSessionStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "MODIFICATION_NOT_ALLOWED", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/sessions/{id}/events": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Audit trail for a session, newest first",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/subscriptions": {
            "post": {
                "tags": ["Subscriptions"],
                "summary": "Create a subscription and book its initial series",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSubscriptionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "SERIES_CONFLICT", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/subscriptions/{id}": {
            "delete": {
                "tags": ["Subscriptions"],
                "summary": "Cancel a subscription's remaining sessions",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/subscriptions/{id}/sessions": {
            "get": {
                "tags": ["Subscriptions"],
                "summary": "List a subscription's sessions",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/subscriptions/{id}/schedule": {
            "patch": {
                "tags": ["Subscriptions"],
                "summary": "Reschedule the remaining series from a new anchor",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RescheduleSeriesRequest"}}
                ],
                "responses": {
                    "200": {"description": "Replanned sessions", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "SERIES_CONFLICT", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/parents/{id}/trial-eligibility": {
            "get": {
                "tags": ["Parents"],
                "summary": "Check a guardian's remaining trial sessions",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/parents/{id}/sessions": {
            "get": {
                "tags": ["Parents"],
                "summary": "List a guardian's booked sessions",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "integer"},
                    {"name": "to", "in": "query", "type": "integer"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Session": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "tutor_id": {"type": "string"},
                "parent_id": {"type": "string"},
                "student_name": {"type": "string"},
                "scheduled_at": {"type": "integer", "format": "int64", "description": "epoch ms"},
                "ends_at": {"type": "integer", "format": "int64", "description": "epoch ms"},
                "duration_minutes": {"type": "integer"},
                "status": {"type": "string", "enum": ["scheduled", "completed", "cancelled", "no_show"]},
                "is_trial": {"type": "boolean"},
                "subscription_id": {"type": "string"},
                "created_at": {"type": "integer", "format": "int64"},
                "updated_at": {"type": "integer", "format": "int64"}
            }
        },
        "WindowInput": {
            "type": "object",
            "properties": {
                "day_of_week": {"type": "integer", "description": "0=Sunday .. 6=Saturday"},
                "start_time": {"type": "string", "example": "16:00"},
                "end_time": {"type": "string", "example": "20:00"},
                "active": {"type": "boolean"}
            },
            "required": ["day_of_week", "start_time", "end_time"]
        },
        "SlotsResponse": {
            "type": "object",
            "properties": {
                "tutor_id": {"type": "string"},
                "from": {"type": "integer", "format": "int64"},
                "to": {"type": "integer", "format": "int64"},
                "duration_minutes": {"type": "integer"},
                "slots": {
                    "type": "array",
                    "items": {"type": "integer", "format": "int64"}
                }
            }
        },
        "BookSessionRequest": {
            "type": "object",
            "properties": {
                "tutor_id": {"type": "string"},
                "parent_id": {"type": "string"},
                "student_name": {"type": "string"},
                "scheduled_at": {"type": "integer", "format": "int64", "description": "epoch ms, must be a resolved slot start"},
                "duration_minutes": {"type": "integer"},
                "trial": {"type": "boolean"}
            },
            "required": ["tutor_id", "parent_id", "student_name", "scheduled_at", "duration_minutes"]
        },
        "RescheduleSessionRequest": {
            "type": "object",
            "properties": {
                "scheduled_at": {"type": "integer", "format": "int64"}
            },
            "required": ["scheduled_at"]
        },
        "SetSessionStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["completed", "no_show"]}
            },
            "required": ["status"]
        },
        "CreateSubscriptionRequest": {
            "type": "object",
            "properties": {
                "tutor_id": {"type": "string"},
                "parent_id": {"type": "string"},
                "student_name": {"type": "string"},
                "frequency": {"type": "string", "enum": ["weekly", "biweekly"]},
                "total_sessions": {"type": "integer"},
                "duration_minutes": {"type": "integer"},
                "anchor": {"type": "integer", "format": "int64", "description": "first occurrence start, epoch ms"}
            },
            "required": ["tutor_id", "parent_id", "student_name", "frequency", "total_sessions", "duration_minutes", "anchor"]
        },
        "RescheduleSeriesRequest": {
            "type": "object",
            "properties": {
                "anchor": {"type": "integer", "format": "int64", "description": "new anchor date, epoch ms; each session keeps its time-of-day"}
            },
            "required": ["anchor"]
        },
        "TrialEligibility": {
            "type": "object",
            "properties": {
                "parent_id": {"type": "string"},
                "trials_used": {"type": "integer"},
                "trial_cap": {"type": "integer"},
                "eligible": {"type": "boolean"}
            }
        },
        "BookingEvent": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "actor_id": {"type": "string"},
                "actor_role": {"type": "string"},
                "operation": {"type": "string"},
                "entity_type": {"type": "string"},
                "entity_id": {"type": "string"},
                "payload": {"type": "object"},
                "occurred_at": {"type": "integer", "format": "int64"}
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
