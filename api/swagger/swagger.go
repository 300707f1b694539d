package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Dojo Club Points API",
        "description": "Points economy engine: ledger, levels, cosmetics and awards",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Staff authentication"},
        {"name": "Students", "description": "Point snapshots, grants and ledger"},
        {"name": "Catalog", "description": "Cosmetic items, eligibility and loadout"},
        {"name": "Awards", "description": "Challenges, prize wheel and gifts"},
        {"name": "Leaderboard", "description": "Lifetime points ranking"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Staff login",
                "responses": {
                    "200": {"description": "Access token issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Point snapshot",
                "responses": {
                    "200": {"description": "Snapshot"},
                    "404": {"description": "Unknown student"}
                }
            }
        },
        "/students/{id}/grants": {
            "post": {
                "tags": ["Students"],
                "summary": "Grant or deduct points",
                "responses": {
                    "200": {"description": "Updated snapshot"},
                    "400": {"description": "Invalid amount"}
                }
            }
        },
        "/students/{id}/ledger": {
            "get": {
                "tags": ["Students"],
                "summary": "List ledger entries",
                "responses": {
                    "200": {"description": "Paged entries"}
                }
            }
        },
        "/students/{id}/statement": {
            "get": {
                "tags": ["Students"],
                "summary": "Export ledger statement",
                "responses": {
                    "200": {"description": "CSV or PDF body"}
                }
            }
        },
        "/students/{id}/eligibility": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Resolve item eligibility",
                "responses": {
                    "200": {"description": "Eligibility state"}
                }
            }
        },
        "/students/{id}/catalog": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List catalog items with eligibility",
                "responses": {
                    "200": {"description": "Annotated items"}
                }
            }
        },
        "/students/{id}/purchases": {
            "post": {
                "tags": ["Catalog"],
                "summary": "Purchase a catalog item",
                "responses": {
                    "200": {"description": "Unlock result"},
                    "403": {"description": "Level or eligibility gate"},
                    "422": {"description": "Insufficient points"}
                }
            }
        },
        "/students/{id}/loadout": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Get equipped loadout",
                "responses": {
                    "200": {"description": "Loadout"}
                }
            },
            "post": {
                "tags": ["Catalog"],
                "summary": "Equip an unlocked item",
                "responses": {
                    "200": {"description": "Loadout"},
                    "403": {"description": "Item locked"}
                }
            }
        },
        "/students/{id}/challenges/{key}/completions": {
            "post": {
                "tags": ["Awards"],
                "summary": "Record a challenge completion",
                "responses": {
                    "200": {"description": "Completion result"}
                }
            }
        },
        "/students/{id}/spins": {
            "post": {
                "tags": ["Awards"],
                "summary": "Spin the prize wheel",
                "responses": {
                    "200": {"description": "Spin result"}
                }
            }
        },
        "/students/{id}/gifts/{giftId}/open": {
            "post": {
                "tags": ["Awards"],
                "summary": "Open a gift",
                "responses": {
                    "200": {"description": "Open result"},
                    "409": {"description": "Exhausted or contended"}
                }
            }
        },
        "/leaderboard": {
            "get": {
                "tags": ["Leaderboard"],
                "summary": "Top students by lifetime points",
                "responses": {
                    "200": {"description": "Ranked entries"}
                }
            }
        }
    },
    "definitions": {
        "StudentSnapshot": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "full_name": {"type": "string"},
                "points_balance": {"type": "integer"},
                "lifetime_points": {"type": "integer"},
                "level": {"type": "integer"},
                "next_level_at": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
