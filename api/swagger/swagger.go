package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Univer Timetable API",
        "description": "Greedy constraint-based university timetable generation service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetable", "description": "Schedule generation and the committed timetable"},
        {"name": "Journal", "description": "Attendance journal batches"}
    ],
    "paths": {
        "/timetable/generate": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Preview a generated timetable",
                "description": "Runs the generator without persisting anything",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/commit": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate and persist a timetable",
                "description": "Replaces the stored schedule for the year and season in one transaction",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable": {
            "get": {
                "tags": ["Timetable"],
                "summary": "List the committed timetable",
                "parameters": [
                    {"name": "yearId", "in": "query", "required": true, "type": "integer"},
                    {"name": "season", "in": "query", "required": true, "type": "string", "enum": ["autumn", "spring"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/errors": {
            "get": {
                "tags": ["Timetable"],
                "summary": "List generation diagnostics",
                "parameters": [
                    {"name": "yearId", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/journal/generate": {
            "post": {
                "tags": ["Journal"],
                "summary": "Queue an attendance journal batch",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateJournalRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "GenerateTimetableRequest": {
            "type": "object",
            "required": ["academicYearId", "season"],
            "properties": {
                "academicYearId": {"type": "integer"},
                "season": {"type": "string", "enum": ["autumn", "spring"]},
                "shift1Levels": {"type": "array", "items": {"type": "integer"}},
                "shift2Levels": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "GenerateJournalRequest": {
            "type": "object",
            "required": ["academicYearId", "season", "startDate", "endDate"],
            "properties": {
                "academicYearId": {"type": "integer"},
                "season": {"type": "string", "enum": ["autumn", "spring"]},
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date"}
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
