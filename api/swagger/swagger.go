package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Rapor API",
        "description": "Grade lifecycle and report aggregation service",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Grades", "description": "Teacher grade submissions and listings"},
        {"name": "Approvals", "description": "Administrator decisions and change requests"},
        {"name": "Reports", "description": "Periodic and yearly report views and CSV exports"}
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
        "/grades": {
            "get": {
                "tags": ["Grades"],
                "summary": "List grade records",
                "parameters": [
                    {"name": "academicYear", "in": "query", "type": "string", "required": true},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "studentIds", "in": "query", "type": "string", "description": "Comma-separated student IDs"},
                    {"name": "period", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["PENDING", "APPROVED", "REJECTED"]},
                    {"name": "submissionId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Grade records", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Grades"],
                "summary": "Submit grades for a class, subject, and period",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitGradesRequest"}}
                ],
                "responses": {
                    "201": {"description": "Submission created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Pending or approved grade already exists for a target key"},
                    "422": {"description": "Invalid payload"}
                }
            }
        },
        "/submissions": {
            "get": {
                "tags": ["Grades"],
                "summary": "List submissions with derived status and stats",
                "parameters": [
                    {"name": "academicYear", "in": "query", "type": "string", "required": true},
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "subject", "in": "query", "type": "string"},
                    {"name": "teacherId", "in": "query", "type": "string"},
                    {"name": "period", "in": "query", "type": "string"},
                    {"name": "submissionId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Submissions", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grades/status": {
            "patch": {
                "tags": ["Approvals"],
                "summary": "Approve or reject grade records",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-item outcomes", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid payload"}
                }
            }
        },
        "/grades/change-request": {
            "post": {
                "tags": ["Approvals"],
                "summary": "Stage grade revisions for re-approval",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangeRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-item outcomes", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid payload"}
                }
            }
        },
        "/reports": {
            "get": {
                "tags": ["Reports"],
                "summary": "Periodic or yearly class report",
                "parameters": [
                    {"name": "academicYear", "in": "query", "type": "string", "required": true},
                    {"name": "classId", "in": "query", "type": "string", "required": true},
                    {"name": "type", "in": "query", "type": "string", "required": true, "enum": ["periodic", "yearly"]},
                    {"name": "studentIds", "in": "query", "type": "string", "description": "Comma-separated student IDs"}
                ],
                "responses": {
                    "200": {"description": "Report view", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/export": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue an asynchronous CSV export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Export job queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/export/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export job status",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Job status with signed URL when finished", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown job"}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished export",
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "CSV file"},
                    "422": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "SubmitGradesRequest": {
            "type": "object",
            "required": ["academic_year", "class_id", "subject", "teacher_id", "grades"],
            "properties": {
                "academic_year": {"type": "string"},
                "class_id": {"type": "string"},
                "subject": {"type": "string"},
                "teacher_id": {"type": "string"},
                "resubmit": {"type": "boolean"},
                "grades": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "student_id": {"type": "string"},
                            "name": {"type": "string"},
                            "grade": {"type": "integer", "x-nullable": true},
                            "period": {"type": "string"}
                        }
                    }
                }
            }
        },
        "UpdateStatusRequest": {
            "type": "object",
            "required": ["items"],
            "properties": {
                "items": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "submission_id": {"type": "string"},
                            "student_id": {"type": "string"},
                            "status": {"type": "string", "enum": ["APPROVED", "REJECTED"]},
                            "rejection_reason": {"type": "string"}
                        }
                    }
                }
            }
        },
        "ChangeRequest": {
            "type": "object",
            "required": ["submission_id", "reason", "changes"],
            "properties": {
                "submission_id": {"type": "string"},
                "reason": {"type": "string"},
                "changes": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "student_id": {"type": "string"},
                            "new_grade": {"type": "integer"}
                        }
                    }
                }
            }
        },
        "ExportRequest": {
            "type": "object",
            "required": ["type", "academic_year", "class_id"],
            "properties": {
                "type": {"type": "string", "enum": ["PERIODIC", "YEARLY"]},
                "academic_year": {"type": "string"},
                "class_id": {"type": "string"}
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
                "pageSize": {"type": "integer"},
                "totalCount": {"type": "integer"}
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
