// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"github.com/dalemusser/homeready/internal/app/system/metrics"
	"github.com/dalemusser/homeready/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// Store is what the features use; it is the selected backend wrapped with
// Prometheus instrumentation. The Mongo fields are nil with the memory
// backend. Limiters collects the rate limiters BuildHandler creates so
// Shutdown can stop their cleanup goroutines.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Store         docstore.Store
	Metrics       *metrics.Registry
	Limiters      *ratelimit.Group
}
