// Package swagger 接口文档，格式与 swag init 的输出一致；接口变更后用 swag init -g cmd/ledger-server/main.go -o docs/swagger 重新生成
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "tags": [
                    "system"
                ],
                "summary": "存活探针",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "业务错误码见 code 字段",
                        "schema": {
                            "$ref": "#/definitions/response.Response"
                        }
                    }
                }
            }
        },
        "/api/v1/ping": {
            "get": {
                "tags": [
                    "system"
                ],
                "summary": "Ping",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "业务错误码见 code 字段",
                        "schema": {
                            "$ref": "#/definitions/response.Response"
                        }
                    }
                }
            }
        },
        "/api/v1/wallet/balance": {
            "get": {
                "tags": [
                    "wallet"
                ],
                "summary": "查询余额",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "业务错误码见 code 字段",
                        "schema": {
                            "$ref": "#/definitions/response.Response"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "query",
                        "name": "asset",
                        "required": false,
                        "type": "string"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/wallet/history": {
            "get": {
                "tags": [
                    "wallet"
                ],
                "summary": "某币种资金流水 (时间倒序)",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "业务错误码见 code 字段",
                        "schema": {
                            "$ref": "#/definitions/response.Response"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "query",
                        "name": "asset",
                        "required": true,
                        "type": "string"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/wallet/withdraw": {
            "post": {
                "tags": [
                    "wallet"
                ],
                "summary": "申请链上提现",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "业务错误码见 code 字段",
                        "schema": {
                            "$ref": "#/definitions/response.Response"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "header",
                        "name": "Idempotency-Key",
                        "type": "string",
                        "description": "UUID，重复提交返回同一条记录"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/request.WithdrawRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/wallet/bank-withdraw": {
            "post": {
                "tags": [
                    "wallet"
                ],
                "summary": "申请银行卡提现",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "业务错误码见 code 字段",
                        "schema": {
                            "$ref": "#/definitions/response.Response"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "header",
                        "name": "Idempotency-Key",
                        "type": "string",
                        "description": "UUID，重复提交返回同一条记录"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/request.BankWithdrawRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/wallet/recharge": {
            "post": {
                "tags": [
                    "wallet"
                ],
                "summary": "提交充值申请",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "业务错误码见 code 字段",
                        "schema": {
                            "$ref": "#/definitions/response.Response"
                        }
                    }
                },
                "description": "等待人工审核；同一笔交易被索引器推送时以链上数据为准",
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/request.RechargeRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/wallet/deposits/{id}/progress": {
            "get": {
                "tags": [
                    "wallet"
                ],
                "summary": "充值确认进度",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "业务错误码见 code 字段",
                        "schema": {
                            "$ref": "#/definitions/response.Response"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "integer"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/wallet/{kind}/{id}/cancel": {
            "post": {
                "tags": [
                    "wallet"
                ],
                "summary": "撤回待审核的提现",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "业务错误码见 code 字段",
                        "schema": {
                            "$ref": "#/definitions/response.Response"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "kind",
                        "required": true,
                        "type": "string",
                        "description": "recharge | withdrawal | bank_withdrawal"
                    },
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "integer"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api/v1/admin/{kind}": {
            "get": {
                "tags": [
                    "admin"
                ],
                "summary": "审核列表",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "业务错误码见 code 字段",
                        "schema": {
                            "$ref": "#/definitions/response.Response"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "kind",
                        "required": true,
                        "type": "string",
                        "description": "recharge | withdrawal | bank_withdrawal"
                    },
                    {
                        "in": "query",
                        "name": "status",
                        "required": false,
                        "type": "string",
                        "description": "pending | confirming | processing | completed | rejected | cancelled | failed"
                    },
                    {
                        "in": "query",
                        "name": "user_id",
                        "required": false,
                        "type": "integer"
                    },
                    {
                        "in": "query",
                        "name": "page",
                        "required": false,
                        "type": "integer"
                    },
                    {
                        "in": "query",
                        "name": "page_size",
                        "required": false,
                        "type": "integer"
                    }
                ],
                "security": [
                    {
                        "AdminID": []
                    }
                ]
            }
        },
        "/api/v1/admin/{kind}/{id}/review": {
            "post": {
                "tags": [
                    "admin"
                ],
                "summary": "审核: 通过或驳回",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "业务错误码见 code 字段",
                        "schema": {
                            "$ref": "#/definitions/response.Response"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "kind",
                        "required": true,
                        "type": "string",
                        "description": "recharge | withdrawal | bank_withdrawal"
                    },
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/request.ReviewRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "AdminID": []
                    }
                ]
            }
        },
        "/api/v1/admin/{kind}/{id}/reviews": {
            "get": {
                "tags": [
                    "admin"
                ],
                "summary": "审核记录",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "业务错误码见 code 字段",
                        "schema": {
                            "$ref": "#/definitions/response.Response"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "kind",
                        "required": true,
                        "type": "string",
                        "description": "recharge | withdrawal | bank_withdrawal"
                    },
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "integer"
                    }
                ],
                "security": [
                    {
                        "AdminID": []
                    }
                ]
            }
        },
        "/api/v1/admin/{kind}/{id}": {
            "delete": {
                "tags": [
                    "admin"
                ],
                "summary": "删除终态记录",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "业务错误码见 code 字段",
                        "schema": {
                            "$ref": "#/definitions/response.Response"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "kind",
                        "required": true,
                        "type": "string",
                        "description": "recharge | withdrawal | bank_withdrawal"
                    },
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "integer"
                    }
                ],
                "security": [
                    {
                        "AdminID": []
                    }
                ]
            }
        },
        "/api/v1/internal/deposits/confirmations": {
            "post": {
                "tags": [
                    "internal"
                ],
                "summary": "索引器推送确认数",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "业务错误码见 code 字段",
                        "schema": {
                            "$ref": "#/definitions/response.Response"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/request.ConfirmationRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "InternalToken": []
                    }
                ]
            }
        },
        "/api/v1/internal/trades": {
            "post": {
                "tags": [
                    "internal"
                ],
                "summary": "成交结算",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "业务错误码见 code 字段",
                        "schema": {
                            "$ref": "#/definitions/response.Response"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/request.TradeRequest"
                        }
                    }
                ],
                "security": [
                    {
                        "InternalToken": []
                    }
                ]
            }
        }
    },
    "definitions": {
        "response.Response": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "integer"
                },
                "msg": {
                    "type": "string"
                },
                "data": {}
            }
        },
        "request.WithdrawRequest": {
            "type": "object",
            "required": [
                "asset",
                "network"
            ],
            "properties": {
                "asset": {
                    "type": "string"
                },
                "network": {
                    "type": "string"
                },
                "address": {
                    "type": "string"
                },
                "amount": {
                    "type": "string",
                    "example": "100.5"
                }
            }
        },
        "request.BankWithdrawRequest": {
            "type": "object",
            "required": [
                "asset",
                "bank_name",
                "account_name",
                "card_number"
            ],
            "properties": {
                "asset": {
                    "type": "string"
                },
                "bank_name": {
                    "type": "string"
                },
                "account_name": {
                    "type": "string"
                },
                "card_number": {
                    "type": "string"
                },
                "amount": {
                    "type": "string",
                    "example": "100.5"
                }
            }
        },
        "request.RechargeRequest": {
            "type": "object",
            "required": [
                "asset",
                "network",
                "tx_hash"
            ],
            "properties": {
                "asset": {
                    "type": "string"
                },
                "network": {
                    "type": "string"
                },
                "tx_hash": {
                    "type": "string"
                },
                "address": {
                    "type": "string"
                },
                "amount": {
                    "type": "string",
                    "example": "100.5"
                }
            }
        },
        "request.ReviewRequest": {
            "type": "object",
            "required": [
                "action"
            ],
            "properties": {
                "action": {
                    "type": "string",
                    "enum": [
                        "approve",
                        "reject"
                    ]
                },
                "remark": {
                    "type": "string"
                }
            }
        },
        "request.ConfirmationRequest": {
            "type": "object",
            "required": [
                "chain",
                "tx_hash",
                "user_id",
                "asset"
            ],
            "properties": {
                "chain": {
                    "type": "string"
                },
                "tx_hash": {
                    "type": "string"
                },
                "user_id": {
                    "type": "integer"
                },
                "asset": {
                    "type": "string"
                },
                "address": {
                    "type": "string"
                },
                "amount": {
                    "type": "string",
                    "example": "100.5"
                },
                "confirmations": {
                    "type": "integer"
                },
                "required": {
                    "type": "integer"
                }
            }
        },
        "request.TradeRequest": {
            "type": "object",
            "required": [
                "user_id",
                "base_asset",
                "quote_asset",
                "side"
            ],
            "properties": {
                "user_id": {
                    "type": "integer"
                },
                "base_asset": {
                    "type": "string"
                },
                "quote_asset": {
                    "type": "string"
                },
                "side": {
                    "type": "string",
                    "enum": [
                        "buy",
                        "sell"
                    ]
                },
                "price": {
                    "type": "string",
                    "example": "100.5"
                },
                "quantity": {
                    "type": "string",
                    "example": "100.5"
                },
                "fee": {
                    "type": "string",
                    "example": "100.5"
                },
                "fee_asset": {
                    "type": "string"
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        },
        "AdminID": {
            "type": "apiKey",
            "name": "X-Admin-ID",
            "in": "header"
        },
        "InternalToken": {
            "type": "apiKey",
            "name": "X-Internal-Token",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Ledger Core API",
	Description:      "资金账本: 充值确认、提现审核、成交结算与资金流水",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
