package mongodb

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"ai-videos-backend/internal/store"
)

// childLookup joins the documents of collection whose sceneId matches the
// current scene, in creation order.
func childLookup(collection, as string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: collection},
		{Key: "let", Value: bson.D{{Key: "sceneId", Value: "$_id"}}},
		{Key: "pipeline", Value: bson.A{
			bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{
				{Key: "$eq", Value: bson.A{"$sceneId", "$$sceneId"}},
			}}}}},
			bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}}},
		}},
		{Key: "as", Value: as},
	}}}
}

// sceneLookup nests scenes, ordered by index, under each project. A project
// without scenes keeps an empty array.
func sceneLookup() bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: store.ScenesCollection},
		{Key: "let", Value: bson.D{{Key: "projectId", Value: "$_id"}}},
		{Key: "pipeline", Value: bson.A{
			bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{
				{Key: "$eq", Value: bson.A{"$projectId", "$$projectId"}},
			}}}}},
			bson.D{{Key: "$sort", Value: bson.D{{Key: "index", Value: 1}}}},
			childLookup(store.ImagesCollection, "images"),
			childLookup(store.VideosCollection, "videos"),
		}},
		{Key: "as", Value: "scenes"},
	}}}
}

// projectPipeline aggregates a single project.
func projectPipeline(match bson.D) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		sceneLookup(),
	}
}

// listPipeline aggregates every project, most recently updated first.
func listPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{
			{Key: "updatedAt", Value: -1},
			{Key: "createdAt", Value: -1},
			{Key: "_id", Value: 1},
		}}},
		sceneLookup(),
	}
}
