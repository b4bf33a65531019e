package query

import "go.mongodb.org/mongo-driver/bson"

var Properties = EntitySpec{
	DefaultLimit: 12,
	SearchFields: []string{"title", "description", "address.city", "address.state", "address.street"},
	Aliases: map[string]string{
		"city":    "address.city",
		"state":   "address.state",
		"street":  "address.street",
		"zipCode": "address.zipCode",
		"type":    "propertyType",
		"purpose": "listingType",
	},
	Fields: map[string]FieldType{
		"price":         Number,
		"bedrooms":      Number,
		"bathrooms":     Number,
		"area":          Number,
		"lotSize":       Number,
		"yearBuilt":     Number,
		"parking":       Number,
		"views":         Number,
		"propertyType":  Categorical,
		"status":        Categorical,
		"listingType":   Categorical,
		"address.city":  Categorical,
		"address.state": Categorical,
		"featured":      Bool,
		"agent":         ObjectID,
		"features":      Tags,
		"amenities":     Tags,
		"geohash":       Prefix,
		"createdAt":     Date,
	},
	Shorthands: map[string]Shorthand{
		"minPrice":    {Field: "price", Operator: "$gte"},
		"maxPrice":    {Field: "price", Operator: "$lte"},
		"minBedrooms": {Field: "bedrooms", Operator: "$gte"},
		"minArea":     {Field: "area", Operator: "$gte"},
	},
	AnyOf: map[string][]string{
		"location": {"address.city", "address.state", "address.street"},
	},
}

var Leads = EntitySpec{
	DefaultLimit: 20,
	SearchFields: []string{"name", "email", "phone"},
	Aliases: map[string]string{
		"propertyId": "property",
		"minBudget":  "budget.min",
		"maxBudget":  "budget.max",
	},
	Fields: map[string]FieldType{
		"status":       Categorical,
		"source":       Categorical,
		"priority":     Categorical,
		"interestedIn": Categorical,
		"timeline":     Categorical,
		"assignedTo":   ObjectID,
		"property":     ObjectID,
		"budget.min":   Number,
		"budget.max":   Number,
		"tags":         Tags,
		"createdAt":    Date,
	},
}

var Appointments = EntitySpec{
	DefaultLimit: 50,
	SearchFields: []string{"title", "client.name", "client.email", "location"},
	Fields: map[string]FieldType{
		"type":     Categorical,
		"status":   Categorical,
		"property": ObjectID,
		"lead":     ObjectID,
		"agent":    ObjectID,
		"date":     Date,
		"duration": Number,
	},
	Shorthands: map[string]Shorthand{
		"startDate": {Field: "date", Operator: "$gte"},
		"endDate":   {Field: "date", Operator: "$lte"},
	},
}

var Conversations = EntitySpec{
	DefaultLimit: 20,
	SearchFields: []string{"client.name", "client.email", "subject"},
	Fields: map[string]FieldType{
		"status":   Categorical,
		"property": ObjectID,
		"lead":     ObjectID,
	},
}

var Contacts = EntitySpec{
	DefaultLimit: 50,
	SearchFields: []string{"name", "email", "message"},
	Fields: map[string]FieldType{
		"status":    Categorical,
		"subject":   Categorical,
		"property":  ObjectID,
		"createdAt": Date,
	},
}

// Owned returns the scope restricting a non-elevated actor to documents whose
// field references them.
func Owned(field string, actorID interface{}) bson.M {
	return bson.M{field: actorID}
}
