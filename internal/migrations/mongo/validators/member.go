package validators

import "go.mongodb.org/mongo-driver/bson"

var MemberValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "email", "phone", "membership_plan", "status", "joined_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":   bson.M{"bsonType": "string"},
			"name":  bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
			"email": bson.M{"bsonType": "string", "maxLength": 254},
			"phone": bson.M{"bsonType": "string", "pattern": `^\+[1-9]\d{1,14}$`},
			"membership_plan": bson.M{
				"bsonType": "string",
				"enum":     []string{"day_pass", "hot_desk", "dedicated", "private_office"},
			},
			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"active", "inactive", "suspended"},
			},
			"joined_at": bson.M{"bsonType": "date"},
		},
	},
}

var AccessCardValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"member_id", "access_type", "active", "issued_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":         bson.M{"bsonType": "string"},
			"member_id":   bson.M{"bsonType": "string"},
			"access_type": bson.M{"bsonType": "string", "enum": []string{"standard", "all_hours"}},
			"active":      bson.M{"bsonType": "bool"},
			"issued_at":   bson.M{"bsonType": "date"},
		},
	},
}

var AccessLogValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"member_id", "device_id", "location", "entry_type", "timestamp"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string"},
			"member_id":  bson.M{"bsonType": "string"},
			"device_id":  bson.M{"bsonType": "string"},
			"location":   bson.M{"bsonType": "string"},
			"entry_type": bson.M{"bsonType": "string", "enum": []string{"entry", "exit"}},
			"timestamp":  bson.M{"bsonType": "date"},
		},
	},
}
