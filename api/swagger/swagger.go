package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Lab Stock API",
        "description": "Central store intake, FIFO allocation and request fulfilment for teaching labs",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "in": "header",
            "name": "Authorization"
        }
    },
    "tags": [
        {
            "name": "Chemicals",
            "description": "Central store intake and FIFO chemical allocation"
        },
        {
            "name": "Equipment",
            "description": "Serialized unit issuing"
        },
        {
            "name": "Requests",
            "description": "Lab fulfilment request workflow"
        },
        {
            "name": "Ledger",
            "description": "Append-only stock movement log"
        }
    ],
    "paths": {
        "/chemicals/intake": {
            "post": {
                "tags": [
                    "Chemicals"
                ],
                "summary": "Record purchased chemical lots into the central store",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ChemicalIntakeRequest"
                        }
                    }
                ]
            }
        },
        "/chemicals/allocate": {
            "post": {
                "tags": [
                    "Chemicals"
                ],
                "summary": "Move chemicals to a lab in FIFO expiry order",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "At least one item was not fully allocated",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ChemicalAllocationRequest"
                        }
                    }
                ]
            }
        },
        "/chemicals/out-of-stock": {
            "get": {
                "tags": [
                    "Chemicals"
                ],
                "summary": "List chemicals whose central stock has run out",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/equipment/allocate": {
            "post": {
                "tags": [
                    "Equipment"
                ],
                "summary": "Issue serialized equipment units to a lab",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/EquipmentAllocationRequest"
                        }
                    }
                ]
            }
        },
        "/ledger": {
            "get": {
                "tags": [
                    "Ledger"
                ],
                "summary": "List stock movement ledger entries",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "kind",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "resourceId",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "requestId",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "labId",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "pageSize",
                        "in": "query",
                        "type": "integer"
                    }
                ]
            }
        },
        "/requests": {
            "get": {
                "tags": [
                    "Requests"
                ],
                "summary": "List fulfilment requests",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "status",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "labId",
                        "in": "query",
                        "type": "string"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "pageSize",
                        "in": "query",
                        "type": "integer"
                    }
                ]
            },
            "post": {
                "tags": [
                    "Requests"
                ],
                "summary": "Submit a fulfilment request",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SubmitRequest"
                        }
                    }
                ]
            }
        },
        "/requests/{id}": {
            "get": {
                "tags": [
                    "Requests"
                ],
                "summary": "Get a fulfilment request",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/requests/{id}/permissions": {
            "get": {
                "tags": [
                    "Requests"
                ],
                "summary": "Derive per-item edit permissions",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/requests/{id}/approve": {
            "post": {
                "tags": [
                    "Requests"
                ],
                "summary": "Approve a pending request",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/requests/{id}/reject": {
            "post": {
                "tags": [
                    "Requests"
                ],
                "summary": "Reject a pending request",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/RejectRequest"
                        }
                    }
                ]
            }
        },
        "/requests/{id}/allocate": {
            "post": {
                "tags": [
                    "Requests"
                ],
                "summary": "Allocate every pending item of an approved request",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "$ref": "#/definitions/UnifiedAllocationRequest"
                        }
                    }
                ]
            }
        },
        "/requests/{id}/fulfill-remaining": {
            "post": {
                "tags": [
                    "Requests"
                ],
                "summary": "Retry items left over by a partial fulfilment",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/requests/{id}/complete": {
            "post": {
                "tags": [
                    "Requests"
                ],
                "summary": "Close a fulfilled request",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/requests/{id}/experiments/{experimentId}/override": {
            "post": {
                "tags": [
                    "Requests"
                ],
                "summary": "Toggle the admin override of an experiment",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "experimentId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/AdminOverrideRequest"
                        }
                    }
                ]
            }
        },
        "/requests/{id}/experiments/{experimentId}/items/{itemId}/disable": {
            "post": {
                "tags": [
                    "Requests"
                ],
                "summary": "Disable or re-enable a request item",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "experimentId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "itemId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/DisableItemRequest"
                        }
                    }
                ]
            }
        }
    },
    "definitions": {
        "ChemicalIntakeLine": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "quantity": {
                    "type": "string",
                    "description": "decimal"
                },
                "unit": {
                    "type": "string"
                },
                "expiryDate": {
                    "type": "string",
                    "format": "date-time"
                },
                "vendor": {
                    "type": "string"
                },
                "price": {
                    "type": "string",
                    "description": "decimal"
                },
                "department": {
                    "type": "string"
                }
            },
            "required": [
                "name",
                "quantity",
                "unit",
                "vendor"
            ]
        },
        "ChemicalIntakeRequest": {
            "type": "object",
            "properties": {
                "labId": {
                    "type": "string"
                },
                "items": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/ChemicalIntakeLine"
                    }
                }
            },
            "required": [
                "items"
            ]
        },
        "ChemicalAllocationItem": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "quantity": {
                    "type": "string",
                    "description": "decimal"
                }
            },
            "required": [
                "name",
                "quantity"
            ]
        },
        "ChemicalAllocationRequest": {
            "type": "object",
            "properties": {
                "labId": {
                    "type": "string"
                },
                "items": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/ChemicalAllocationItem"
                    }
                }
            },
            "required": [
                "labId",
                "items"
            ]
        },
        "EquipmentAllocation": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "variant": {
                    "type": "string"
                },
                "itemIds": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            },
            "required": [
                "name",
                "itemIds"
            ]
        },
        "EquipmentAllocationRequest": {
            "type": "object",
            "properties": {
                "labId": {
                    "type": "string"
                },
                "allocations": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/EquipmentAllocation"
                    }
                }
            },
            "required": [
                "labId",
                "allocations"
            ]
        },
        "ChemicalRequestLine": {
            "type": "object",
            "properties": {
                "chemicalName": {
                    "type": "string"
                },
                "quantity": {
                    "type": "string",
                    "description": "decimal"
                },
                "unit": {
                    "type": "string"
                }
            },
            "required": [
                "chemicalName",
                "quantity"
            ]
        },
        "GlasswareRequestLine": {
            "type": "object",
            "properties": {
                "productId": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "variant": {
                    "type": "string"
                },
                "quantity": {
                    "type": "integer"
                }
            },
            "required": [
                "productId",
                "name",
                "quantity"
            ]
        },
        "EquipmentRequestLine": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "variant": {
                    "type": "string"
                },
                "quantity": {
                    "type": "integer"
                }
            },
            "required": [
                "name",
                "quantity"
            ]
        },
        "SubmitExperiment": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "date": {
                    "type": "string",
                    "format": "date-time"
                },
                "chemicals": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/ChemicalRequestLine"
                    }
                },
                "glassware": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/GlasswareRequestLine"
                    }
                },
                "equipment": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/EquipmentRequestLine"
                    }
                }
            },
            "required": [
                "name",
                "date"
            ]
        },
        "SubmitRequest": {
            "type": "object",
            "properties": {
                "labId": {
                    "type": "string"
                },
                "remarks": {
                    "type": "string"
                },
                "experiments": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/SubmitExperiment"
                    }
                }
            },
            "required": [
                "labId",
                "experiments"
            ]
        },
        "RejectRequest": {
            "type": "object",
            "properties": {
                "reason": {
                    "type": "string"
                }
            }
        },
        "UnifiedAllocationRequest": {
            "type": "object",
            "properties": {
                "equipmentSelections": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "array",
                        "items": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "AdminOverrideRequest": {
            "type": "object",
            "properties": {
                "enabled": {
                    "type": "boolean"
                }
            }
        },
        "DisableItemRequest": {
            "type": "object",
            "properties": {
                "disabled": {
                    "type": "boolean"
                },
                "reason": {
                    "type": "string"
                }
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {
                    "type": "integer"
                },
                "page_size": {
                    "type": "integer"
                },
                "total_count": {
                    "type": "integer"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                },
                "details": {
                    "type": "object"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "pagination": {
                    "$ref": "#/definitions/Pagination"
                },
                "meta": {
                    "type": "object"
                }
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
