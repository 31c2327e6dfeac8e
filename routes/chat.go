package routes

import (
	"context"
	"net/http"
	"time"

	"sop-assistant/internal/config"
	"sop-assistant/models"
	"sop-assistant/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func SetupChatRoutes(router *gin.Engine, cfg *config.Config, mongoClient *mongo.Client) {
	chat := router.Group("/chat")

	messagesCollection := mongoClient.Database(cfg.DBName).Collection("messages")

	// Full history for one session
	chat.GET("/conversations/:session_id", func(c *gin.Context) {
		sessionID := c.Param("session_id")

		cursor, err := messagesCollection.Find(
			context.Background(),
			bson.M{"session_id": sessionID},
			options.Find().SetSort(bson.M{"timestamp": 1}),
		)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to retrieve conversation", nil)
			return
		}
		defer cursor.Close(context.Background())

		messages := make([]models.Message, 0)
		if err := cursor.All(context.Background(), &messages); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode messages", nil)
			return
		}

		var createdAt, updatedAt time.Time
		if len(messages) > 0 {
			createdAt = messages[0].Timestamp
			updatedAt = messages[len(messages)-1].Timestamp
		}

		c.JSON(http.StatusOK, models.ConversationHistory{
			SessionID:    sessionID,
			Messages:     messages,
			MessageCount: len(messages),
			CreatedAt:    createdAt,
			UpdatedAt:    updatedAt,
		})
	})

	// List sessions with their last exchange
	chat.GET("/conversations", func(c *gin.Context) {
		pipeline := mongo.Pipeline{
			{{Key: "$sort", Value: bson.D{{Key: "timestamp", Value: 1}}}},
			{{Key: "$group", Value: bson.D{
				{Key: "_id", Value: "$session_id"},
				{Key: "last_message", Value: bson.D{{Key: "$last", Value: "$$ROOT"}}},
				{Key: "message_count", Value: bson.D{{Key: "$sum", Value: 1}}},
			}}},
			{{Key: "$sort", Value: bson.D{{Key: "last_message.timestamp", Value: -1}}}},
		}

		cursor, err := messagesCollection.Aggregate(context.Background(), pipeline)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to retrieve conversations", nil)
			return
		}
		defer cursor.Close(context.Background())

		conversations := make([]gin.H, 0)
		for cursor.Next(context.Background()) {
			var result struct {
				ID           string         `bson:"_id"`
				LastMessage  models.Message `bson:"last_message"`
				MessageCount int            `bson:"message_count"`
			}
			if err := cursor.Decode(&result); err != nil {
				continue
			}

			conversations = append(conversations, gin.H{
				"session_id":    result.ID,
				"last_message":  result.LastMessage,
				"message_count": result.MessageCount,
				"updated_at":    result.LastMessage.Timestamp,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"conversations": conversations,
			"total":         len(conversations),
		})
	})
}
