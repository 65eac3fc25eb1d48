package validators

import "go.mongodb.org/mongo-driver/bson"

var SpotLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"expires_at",
			"created_at",
		},
		"additionalProperties": false,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
				"pattern":  "^spot_lock_",
			},

			"expires_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
