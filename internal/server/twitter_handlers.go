package server

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/C0l0red/twitter-client/internal/models"
	"github.com/C0l0red/twitter-client/internal/twitter"

	"github.com/gofiber/fiber/v2"
)

// BeginTwitterLink handles POST /api/twitter/link (handshake step 1).
func (s *Server) BeginTwitterLink(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	result, err := s.engine.Begin(c.Context(), user)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Go to the URL to login with Twitter. Open it in a new tab; you'll get a PIN after logging in, use that PIN to verify",
		"url":     result.AuthorizeURL,
	})
}

// CompleteTwitterLink handles POST /api/twitter/verify (handshake step 2).
func (s *Server) CompleteTwitterLink(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Verifier string `json:"verifier"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if strings.TrimSpace(req.Verifier) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Please enter the verifier PIN from Twitter"))
	}

	result, err := s.engine.Complete(c.Context(), user, req.Verifier)
	if err != nil {
		return respondError(c, err)
	}

	message := "Your Twitter login is complete, you can now use Twitter from here"
	if result.Renamed {
		message = "Your Twitter login is complete, your username has been changed from '" +
			result.OldName + "' to '" + result.NewName + "'"
	}

	return c.JSON(fiber.Map{
		"message":  message,
		"renamed":  result.Renamed,
		"old_name": result.OldName,
		"new_name": result.NewName,
	})
}

// ConvertTweetLink handles GET /api/twitter/link-to-id?link=...
func (s *Server) ConvertTweetLink(c *fiber.Ctx) error {
	link, err := twitter.ParseTweetLink(c.Query("link"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(link)
}

// MakeTweet handles POST /api/twitter/tweets
func (s *Server) MakeTweet(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	body, err := s.gateway.PostTweet(c.Context(), user, req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return sendRawJSON(c, body)
}

// ReplyTweet handles POST /api/twitter/tweets/reply
func (s *Server) ReplyTweet(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Text string `json:"text"`
		Link string `json:"link"`
		ID   int64  `json:"id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	body, err := s.gateway.ReplyToTweet(c.Context(), user, twitter.ReplyInput{
		Text:     req.Text,
		Link:     req.Link,
		StatusID: req.ID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return sendRawJSON(c, body)
}

// QuoteTweet handles POST /api/twitter/tweets/quote
func (s *Server) QuoteTweet(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Text string `json:"text"`
		Link string `json:"link"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	body, err := s.gateway.QuoteTweet(c.Context(), user, req.Text, req.Link)
	if err != nil {
		return respondError(c, err)
	}
	return sendRawJSON(c, body)
}

// GetTweets handles GET /api/twitter/tweets?ids=1,2,3
func (s *Server) GetTweets(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	ids, err := parseIDList(c.Query("ids"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("ids must be a comma-separated list of numbers"))
	}

	body, err := s.gateway.LookupTweets(c.Context(), user, ids)
	if err != nil {
		return respondError(c, err)
	}
	return sendRawJSON(c, body)
}

// GetHomeTimeline handles GET /api/twitter/timeline?count=n
func (s *Server) GetHomeTimeline(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	count := c.QueryInt("count", 0)

	body, err := s.gateway.HomeTimeline(c.Context(), user, count)
	if err != nil {
		return respondError(c, err)
	}
	return sendRawJSON(c, body)
}

// GetTwitterUsers handles GET /api/twitter/users?ids=...&usernames=...
func (s *Server) GetTwitterUsers(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	ids, err := parseIDList(c.Query("ids"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("ids must be a comma-separated list of numbers"))
	}

	var usernames []string
	if raw := strings.TrimSpace(c.Query("usernames")); raw != "" {
		usernames = strings.Split(raw, ",")
	}

	body, err := s.gateway.LookupUsers(c.Context(), user, ids, usernames)
	if err != nil {
		return respondError(c, err)
	}
	return sendRawJSON(c, body)
}

// sendRawJSON returns an upstream JSON payload verbatim.
func sendRawJSON(c *fiber.Ctx, body json.RawMessage) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

func parseIDList(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
