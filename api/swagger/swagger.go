package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Student Progress API",
        "description": "Session timelines, progress metrics and upcoming assignments reconciled from the academic backend.",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Progress", "description": "Session timelines and progress metrics per enrollment"},
        {"name": "Assignments", "description": "Upcoming assignments across classes"}
    ],
    "paths": {
        "/classes/{classId}/students/{studentId}/sessions": {
            "get": {
                "tags": ["Progress"],
                "summary": "Session timeline of a student in a class",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "courseId", "in": "query", "required": true, "type": "string"},
                    {"name": "window", "in": "query", "type": "string", "enum": ["weeks", "sessions"]},
                    {"name": "size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionsEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Sessions unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{classId}/students/{studentId}/sessions/export": {
            "get": {
                "tags": ["Progress"],
                "summary": "Download a session timeline",
                "produces": ["text/csv", "application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "courseId", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Attachment", "schema": {"type": "file"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Export disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classes/{classId}/students/{studentId}/progress": {
            "get": {
                "tags": ["Progress"],
                "summary": "Progress metrics of a student in a class",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "classId", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "courseId", "in": "query", "required": true, "type": "string"},
                    {"name": "window", "in": "query", "type": "string", "enum": ["weeks", "sessions"]},
                    {"name": "size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ProgressEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Sessions unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/assignments/upcoming": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Nearest upcoming assignments across all classes of a student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer", "minimum": 1, "maximum": 50, "default": 5}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/UpcomingEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/assignments/upcoming/refresh": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Drop cached upcoming assignments so the next read recomputes them",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Meeting": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "classId": {"type": "string"},
                "date": {"type": "string", "format": "date-time"},
                "slot": {"type": "string"}
            }
        },
        "AttendanceSignal": {
            "type": "object",
            "properties": {
                "meetingId": {"type": "string"},
                "status": {"type": "string", "enum": ["PRESENT", "ABSENT", "NOT_MARKED"]},
                "notes": {"type": "string"},
                "checkedBy": {"type": "string"},
                "topic": {"type": "string"},
                "source": {"type": "string", "enum": ["primary", "secondary"]}
            }
        },
        "Assignment": {
            "type": "object",
            "properties": {
                "assignmentId": {"type": "string"},
                "meetingId": {"type": "string"},
                "classId": {"type": "string"},
                "title": {"type": "string"},
                "dueAt": {"type": "string", "format": "date-time"},
                "submittedAt": {"type": "string", "format": "date-time"},
                "score": {"type": "number"},
                "feedback": {"type": "string"},
                "submissionStatus": {"type": "string", "enum": ["PENDING", "SUBMITTED", "GRADED"]}
            }
        },
        "ClassifiedAssignment": {
            "allOf": [
                {"$ref": "#/definitions/Assignment"},
                {
                    "type": "object",
                    "properties": {
                        "completed": {"type": "boolean"},
                        "overdue": {"type": "boolean"},
                        "state": {"type": "string", "enum": ["completed", "overdue", "pending"]}
                    }
                }
            ]
        },
        "Session": {
            "type": "object",
            "properties": {
                "sessionNumber": {"type": "integer"},
                "meeting": {"$ref": "#/definitions/Meeting"},
                "assignments": {"type": "array", "items": {"$ref": "#/definitions/ClassifiedAssignment"}},
                "coveredTopic": {"type": "string"},
                "topicSource": {"type": "string", "enum": ["covered_topic", "attendance", "catalog"]},
                "attendance": {"$ref": "#/definitions/AttendanceSignal"},
                "isCompleted": {"type": "boolean"},
                "isMilestone": {"type": "boolean"}
            }
        },
        "ProgressMetrics": {
            "type": "object",
            "properties": {
                "window": {
                    "type": "object",
                    "properties": {
                        "kind": {"type": "string", "enum": ["weeks", "sessions"]},
                        "n": {"type": "integer"}
                    }
                },
                "completionRate": {"type": "number"},
                "totalCount": {"type": "integer"},
                "completedCount": {"type": "integer"},
                "pendingCount": {"type": "integer"},
                "overdueCount": {"type": "integer"},
                "weeklyScores": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "label": {"type": "string"},
                            "score": {"type": "number"}
                        }
                    }
                },
                "warningLevel": {"type": "string", "enum": ["MEDIUM", "HIGH"]}
            }
        },
        "SessionsResponse": {
            "type": "object",
            "properties": {
                "classId": {"type": "string"},
                "studentId": {"type": "string"},
                "courseId": {"type": "string"},
                "sessions": {"type": "array", "items": {"$ref": "#/definitions/Session"}},
                "currentIndex": {"type": "integer"},
                "currentSession": {"$ref": "#/definitions/Session"},
                "lastAttended": {
                    "type": "object",
                    "properties": {
                        "signal": {"$ref": "#/definitions/AttendanceSignal"},
                        "meetingDate": {"type": "string", "format": "date-time"}
                    }
                },
                "metrics": {"$ref": "#/definitions/ProgressMetrics"}
            }
        },
        "ProgressResponse": {
            "type": "object",
            "properties": {
                "classId": {"type": "string"},
                "studentId": {"type": "string"},
                "courseId": {"type": "string"},
                "metrics": {"$ref": "#/definitions/ProgressMetrics"}
            }
        },
        "UpcomingAssignmentsResponse": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "limit": {"type": "integer"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/Assignment"}}
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
        },
        "SessionsEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/SessionsResponse"},
                "meta": {"type": "object"}
            }
        },
        "ProgressEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/ProgressResponse"},
                "meta": {"type": "object"}
            }
        },
        "UpcomingEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/UpcomingAssignmentsResponse"},
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
