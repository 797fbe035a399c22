package validators

import "go.mongodb.org/mongo-driver/bson"

var StockedItemValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "category", "unit_price", "available_quantity", "location"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":                bson.M{"bsonType": "string"},
			"name":               bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
			"category":           bson.M{"bsonType": "string", "maxLength": 50},
			"unit_price":         bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"available_quantity": bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"location":           bson.M{"bsonType": "string"},
		},
	},
}

var ServiceUsageValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"item_id", "member_id", "quantity", "total_price", "purchased_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":          bson.M{"bsonType": "string"},
			"item_id":      bson.M{"bsonType": "string"},
			"member_id":    bson.M{"bsonType": "string"},
			"quantity":     bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
			"total_price":  bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"purchased_at": bson.M{"bsonType": "date"},
			"invoice_id":   bson.M{"bsonType": "string"},
		},
	},
}

var InvoiceValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"member_id", "total_amount", "status", "invoice_date", "due_date"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":          bson.M{"bsonType": "string"},
			"member_id":    bson.M{"bsonType": "string"},
			"total_amount": bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"status":       bson.M{"bsonType": "string", "enum": []string{"pending", "paid"}},
			"invoice_date": bson.M{"bsonType": "date"},
			"due_date":     bson.M{"bsonType": "date"},
			"paid_at":      bson.M{"bsonType": "date"},
			"reservation_ids": bson.M{
				"bsonType": "array",
				"items":    bson.M{"bsonType": "string"},
			},
			"usage_ids": bson.M{
				"bsonType": "array",
				"items":    bson.M{"bsonType": "string"},
			},
		},
	},
}
