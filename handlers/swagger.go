package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(r *gin.Engine) {
	r.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	r.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>importflow API - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Hand-maintained OpenAPI document; keep in sync with the route registrations.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "importflow", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "Error": { "type": "object", "properties": { "error": { "type": "string" } } },
      "PipelineEntry": { "type": "object", "properties": { "documentType": {"type":"string"}, "status": {"type":"string","enum":["pending","processing","completed","error"]}, "fileHash": {"type":"string"}, "fileName": {"type":"string"}, "errorMessage": {"type":"string"}, "updatedAt": {"type":"string"} } },
      "Process": { "type": "object", "properties": { "id": {"type":"string"}, "processNumber": {"type":"string"}, "company": {"type":"string"}, "supplier": {"type":"string"}, "startDate": {"type":"string","format":"date"}, "expectedArrivalDate": {"type":"string","format":"date"}, "status": {"type":"string","enum":["open","in_transit","customs_clearance","completed","cancelled"]}, "notes": {"type":"string"}, "documentsPipeline": {"type":"array","items":{"$ref":"#/components/schemas/PipelineEntry"}} } },
      "Upload": { "type": "object", "properties": { "id": {"type":"string"}, "fileHash": {"type":"string"}, "fileName": {"type":"string"}, "storagePath": {"type":"string"}, "mimeType": {"type":"string"}, "size": {"type":"integer"}, "pageCount": {"type":"integer"}, "status": {"type":"string"}, "documentType": {"type":"string"}, "extractedData": {"type":"object"}, "errorMessage": {"type":"string"} } },
      "ExtractionResult": { "type": "object", "properties": { "fileHash": {"type":"string"}, "documentType": {"type":"string"}, "status": {"type":"string"}, "extractedData": {"type":"object"}, "cached": {"type":"boolean"} } }
    }
  },
  "security": [ { "bearer": [] } ],
  "paths": {
    "/health": { "get": { "summary": "Liveness check", "security": [], "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "security": [], "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/api/v1/me": { "get": { "summary": "Current user", "responses": { "200": { "description": "user from token claims" }, "401": { "description": "missing or invalid token" } } } },
    "/api/v1/processes": {
      "get": { "summary": "List processes (search, status, page, pageSize)", "responses": { "200": { "description": "items, total, page, pageSize" } } },
      "post": { "summary": "Create process", "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Process" } } } }, "responses": { "201": { "description": "created" }, "400": { "description": "invalid" } } }
    },
    "/api/v1/processes/batch": { "get": { "summary": "Get processes by ids (ids=1,2,3)", "responses": { "200": { "description": "items" } } } },
    "/api/v1/processes/{id}": {
      "get": { "summary": "Get process", "responses": { "200": { "description": "process" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Update process", "responses": { "200": { "description": "updated" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete process and its document relations", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/v1/processes/{id}/pipeline": { "patch": { "summary": "Set one documents pipeline entry", "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/PipelineEntry" } } } }, "responses": { "200": { "description": "process" } } } },
    "/api/v1/processes/{id}/documents": {
      "get": { "summary": "Uploads linked to a process", "responses": { "200": { "description": "items" } } },
      "post": { "summary": "Link an upload (fileHash, documentType)", "responses": { "200": { "description": "linked" } } }
    },
    "/api/v1/processes/{id}/documents/{hash}": { "delete": { "summary": "Unlink an upload", "responses": { "204": { "description": "unlinked" } } } },
    "/api/v1/processes/{id}/audit": { "get": { "summary": "Audit log of a process", "responses": { "200": { "description": "items" } } } },
    "/api/v1/documents": {
      "get": { "summary": "List uploads (scope, status, limit, offset)", "responses": { "200": { "description": "items" } } },
      "post": { "summary": "Upload a file (multipart: file, processId, documentType)", "responses": { "201": { "description": "stored" }, "200": { "description": "already stored" }, "413": { "description": "too large" } } }
    },
    "/api/v1/documents/{hash}": {
      "get": { "summary": "Get upload", "responses": { "200": { "description": "upload" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete upload and stored object", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/v1/documents/{hash}/status": { "patch": { "summary": "Set upload status", "responses": { "200": { "description": "upload" } } } },
    "/api/v1/documents/{hash}/url": { "get": { "summary": "Presigned download URL", "responses": { "200": { "description": "url, expiresAt" } } } },
    "/api/v1/ocr/process": { "post": { "summary": "Run the extraction pipeline (fileHash, processId, documentType, force)", "responses": { "200": { "description": "result", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/ExtractionResult" } } } }, "502": { "description": "extraction failed" } } } },
    "/api/v1/ocr/identify": { "post": { "summary": "Identify the document type", "responses": { "200": { "description": "result" } } } },
    "/api/v1/ocr/extract": { "post": { "summary": "Extract without saving (fileHash, documentType)", "responses": { "200": { "description": "result" } } } }
  }
}`
