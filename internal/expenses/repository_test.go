package expenses

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestVersionFilterMatchesUnversionedDocumentsAtZero(t *testing.T) {
	id := primitive.NewObjectID()

	filter := versionFilter(id, 0)
	require.Equal(t, id, filter["_id"])
	require.NotContains(t, filter, "version")
	require.Equal(t, bson.A{
		bson.M{"version": int64(0)},
		bson.M{"version": bson.M{"$exists": false}},
	}, filter["$or"])

	require.Equal(t, bson.M{"_id": id, "version": int64(3)}, versionFilter(id, 3))
}
