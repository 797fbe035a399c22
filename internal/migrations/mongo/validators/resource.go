package validators

import "go.mongodb.org/mongo-driver/bson"

// ResourceValidator is shared by the workspace, meeting room and equipment collections.
var ResourceValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "type", "name", "location", "occupied", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id": bson.M{"bsonType": "string", "minLength": 1, "maxLength": 64},
			"type": bson.M{
				"bsonType": "string",
				"enum":     []string{"workspace", "meeting_room", "equipment"},
			},
			"name":           bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
			"location":       bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
			"capacity":       bson.M{"bsonType": []string{"int", "long"}, "minimum": 0, "maximum": 500},
			"price_per_hour": bson.M{"bsonType": []string{"int", "long"}, "minimum": 0, "maximum": 100_000_000},
			"features": bson.M{
				"bsonType": "array",
				"maxItems": 20,
				"items":    bson.M{"bsonType": "string"},
			},
			"occupied": bson.M{
				"bsonType": "string",
				"enum":     []string{"occupied", "not_occupied", "under_maintenance"},
			},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
