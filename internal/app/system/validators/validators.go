// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/homeready/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Sub-collection names used by the Mongo document store for share copies.
const (
	ShareRoomsCollection = models.SharesCollection + "_rooms"
	ShareItemsCollection = models.SharesCollection + "_items"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
//
// Validators only apply to the Mongo backend; the memory store relies on the
// store packages alone.
func EnsureAll(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll, log); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				log.Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
			return
		}
		log.Info("validator ensured", zap.String("collection", coll))
	}

	ensure(models.HomesCollection, homesSchema())
	ensure(models.RoomsCollection, roomsSchema())
	ensure(models.ItemsCollection, itemsSchema())
	ensure(models.InvitationsCollection, invitationsSchema())
	ensure(models.UsersCollection, usersSchema())
	ensure(models.SharesCollection, sharesSchema())
	ensure(ShareRoomsCollection, shareRoomsSchema())
	ensure(ShareItemsCollection, shareItemsSchema())

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string, log *zap.Logger) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		log.Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	log.Info("created collection", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	return db.RunCommand(ctx, cmd).Decode(&out)
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 59 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 115 {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	nonBlank    = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	stringArray = bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}}
	hexColor    = bson.M{"bsonType": "string", "pattern": "^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$"}
	necessity   = bson.M{"enum": bson.A{
		string(models.NecessityHigh), string(models.NecessityMedium), string(models.NecessityLow),
	}}
)

func schema(required bson.A, props bson.M) bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType":   "object",
			"required":   required,
			"properties": props,
		},
	}
}

func homesSchema() bson.M {
	return schema(bson.A{"ownerId", "name", "members", "pendingInvites"}, bson.M{
		"ownerId":        nonBlank,
		"name":           nonBlank,
		"members":        stringArray,
		"pendingInvites": stringArray,
		"palette": bson.M{
			"bsonType": "object",
			"properties": bson.M{
				"primary":   hexColor,
				"secondary": hexColor,
				"accent":    hexColor,
				"neutral":   hexColor,
			},
		},
	})
}

func roomsSchema() bson.M {
	return schema(bson.A{"homeId", "name", "nameKey", "order"}, bson.M{
		"homeId":  nonBlank,
		"name":    nonBlank,
		"nameKey": nonBlank,
		"order":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
	})
}

func itemsSchema() bson.M {
	return schema(bson.A{"homeId", "roomId", "name", "nameKey", "necessityLevel", "done"}, bson.M{
		"homeId":         nonBlank,
		"roomId":         nonBlank,
		"name":           nonBlank,
		"nameKey":        nonBlank,
		"necessityLevel": necessity,
		"done":           bson.M{"bsonType": "bool"},
	})
}

func invitationsSchema() bson.M {
	return schema(bson.A{"homeId", "createdBy", "email", "emailLower", "status"}, bson.M{
		"homeId":     nonBlank,
		"homeName":   bson.M{"bsonType": "string"},
		"createdBy":  nonBlank,
		"email":      nonBlank,
		"emailLower": nonBlank,
		"status": bson.M{"enum": bson.A{
			string(models.InvitationPending), string(models.InvitationAccepted), string(models.InvitationDenied),
		}},
	})
}

func usersSchema() bson.M {
	return schema(bson.A{"uid"}, bson.M{
		"uid":        nonBlank,
		"email":      bson.M{"bsonType": "string"},
		"emailLower": bson.M{"bsonType": "string"},
	})
}

func sharesSchema() bson.M {
	return schema(bson.A{"homeId", "createdBy", "mode", "roomsIncluded"}, bson.M{
		"homeId":        nonBlank,
		"createdBy":     nonBlank,
		"mode":          bson.M{"enum": bson.A{models.ShareModeReadOnly}},
		"roomsIncluded": stringArray,
	})
}

func shareRoomsSchema() bson.M {
	return schema(bson.A{"_parent", "name", "order"}, bson.M{
		"_parent": nonBlank,
		"name":    nonBlank,
		"order":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
	})
}

func shareItemsSchema() bson.M {
	return schema(bson.A{"_parent", "name", "roomId", "necessityLevel", "done"}, bson.M{
		"_parent":        nonBlank,
		"name":           nonBlank,
		"roomId":         nonBlank,
		"necessityLevel": necessity,
		"done":           bson.M{"bsonType": "bool"},
	})
}
