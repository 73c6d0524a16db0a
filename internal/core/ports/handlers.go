package ports

import (
	"context"

	"github.com/gin-gonic/gin"
)

// ChatClient is the chat transport: it feeds inbound messages to the
// aggregator and carries outbound replies.
type ChatClient interface {
	Run(ctx context.Context) error
	Say(text string)
	Connected() bool
}

// HTTPHandler groups the gin handlers the API server mounts.
type HTTPHandler interface {
	Status(c *gin.Context)
	Command(c *gin.Context)
	Token(c *gin.Context)
}
