package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Announcement Sync API",
        "description": "Fetches portal announcements page by page and mirrors them into the ledger.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Announcements", "description": "Portal announcement feed and ledger sync"},
        {"name": "Observability", "description": "Health and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Observability"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Observability"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Pipeline counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/MetricsSnapshot"}},
                    "503": {"description": "Metrics disabled", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/announcements": {
            "post": {
                "tags": ["Announcements"],
                "summary": "Fetch and sync the first announcements page",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AnnouncementsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SyncedPage"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "401": {"description": "Portal rejected the credentials", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "502": {"description": "Portal unavailable or returned errors", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "504": {"description": "Portal timed out", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/announcements/more": {
            "post": {
                "tags": ["Announcements"],
                "summary": "Fetch and sync the page after a cursor",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MoreAnnouncementsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SyncedPage"}},
                    "400": {"description": "Invalid payload or missing cursor", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "401": {"description": "Portal rejected the credentials", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "502": {"description": "Portal unavailable or returned errors", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "504": {"description": "Portal timed out", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/announcements/documents": {
            "post": {
                "tags": ["Announcements"],
                "summary": "List the documents of one announcement",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DocumentsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/DocumentsResponse"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "502": {"description": "Enrichment failed", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        }
    },
    "definitions": {
        "AnnouncementsRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"},
                "itemsPerPage": {"type": "integer", "minimum": 1, "maximum": 100, "example": 15}
            }
        },
        "MoreAnnouncementsRequest": {
            "type": "object",
            "required": ["username", "password", "afterCursor"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"},
                "afterCursor": {"type": "string"},
                "itemsPerPage": {"type": "integer", "minimum": 1, "maximum": 100, "example": 15}
            }
        },
        "DocumentsRequest": {
            "type": "object",
            "required": ["username", "password", "announcementId"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"},
                "announcementId": {"type": "string"}
            }
        },
        "Document": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "fileFilename": {"type": "string"},
                "fileUrl": {"type": "string"},
                "contentType": {"type": "string"}
            }
        },
        "DocumentsResponse": {
            "type": "object",
            "properties": {
                "announcementId": {"type": "string"},
                "documents": {"type": "array", "items": {"$ref": "#/definitions/Document"}}
            }
        },
        "Announcement": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "dbId": {"type": "string"},
                "title": {"type": "string", "x-nullable": true},
                "message": {"type": "string", "x-nullable": true},
                "createdAt": {"type": "string"},
                "documentsCount": {"type": "integer"},
                "user": {
                    "type": "object",
                    "properties": {
                        "permittedName": {"type": "string", "x-nullable": true}
                    }
                },
                "documents": {"type": "array", "items": {"$ref": "#/definitions/Document"}}
            }
        },
        "SyncResult": {
            "type": "object",
            "properties": {
                "successCount": {"type": "integer"},
                "errorCount": {"type": "integer"},
                "skippedCount": {"type": "integer"},
                "saved": {"type": "boolean"},
                "queued": {"type": "boolean"}
            }
        },
        "SyncedPage": {
            "type": "object",
            "properties": {
                "announcements": {"type": "array", "items": {"$ref": "#/definitions/Announcement"}},
                "hasNextPage": {"type": "boolean"},
                "endCursor": {"type": "string", "x-nullable": true},
                "error": {"type": "string", "x-nullable": true},
                "sync": {"$ref": "#/definitions/SyncResult"}
            }
        },
        "MetricsSnapshot": {
            "type": "object",
            "properties": {
                "requests_total": {"type": "integer"},
                "average_request_duration_ms": {"type": "number"},
                "portal_calls": {"type": "integer"},
                "portal_failures": {"type": "integer"},
                "enrichment_failures": {"type": "integer"},
                "ledger_writes": {"type": "integer"},
                "ledger_write_failures": {"type": "integer"},
                "goroutines": {"type": "integer"},
                "generated_at": {"type": "string", "format": "date-time"}
            }
        },
        "ErrorBody": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"}
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
