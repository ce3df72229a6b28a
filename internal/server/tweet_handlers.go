package server

import (
	"minitweet/internal/service"

	"github.com/gofiber/fiber/v2"
)

// TweetRequest is the body of POST /tweet and DELETE /tweet.
type TweetRequest struct {
	ID    flexID  `json:"id"`
	Tweet *string `json:"tweet"`
}

// UserRef is a body naming the acting user.
type UserRef struct {
	ID flexID `json:"id"`
}

func (r TweetRequest) parse() (uint, string, error) {
	userID, err := requireID(r.ID, "id")
	if err != nil {
		return 0, "", err
	}
	if r.Tweet == nil {
		return 0, "", errMissingTweet
	}
	return userID, *r.Tweet, nil
}

// PostTweet handles POST /tweet. Success has an empty body.
func (s *Server) PostTweet(c *fiber.Ctx) error {
	var req TweetRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	userID, body, err := req.parse()
	if err != nil {
		return respondError(c, err)
	}
	tagUser(c, userID)

	if _, err := s.tweetService.PostTweet(c.UserContext(), service.PostTweetInput{
		UserID: userID,
		Body:   body,
	}); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).Send(nil)
}

// DeleteTweet handles DELETE /tweet, removing the caller's earliest tweet with
// exactly the given body.
func (s *Server) DeleteTweet(c *fiber.Ctx) error {
	var req TweetRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	userID, body, err := req.parse()
	if err != nil {
		return respondError(c, err)
	}
	tagUser(c, userID)

	if _, err := s.tweetService.DeleteTweet(c.UserContext(), service.DeleteTweetInput{
		UserID: userID,
		Body:   body,
	}); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).Send(nil)
}

// DeleteTweetByID handles DELETE /tweet/:tweetId
func (s *Server) DeleteTweetByID(c *fiber.Ctx) error {
	tweetID, err := parseID(c, "tweetId")
	if err != nil {
		return nil
	}
	userID, ok := s.actingUser(c)
	if !ok {
		return nil
	}

	if _, err := s.tweetService.DeleteTweet(c.UserContext(), service.DeleteTweetInput{
		UserID:  userID,
		TweetID: tweetID,
	}); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).Send(nil)
}

// ListTweets handles GET /tweets, the whole log in log order.
func (s *Server) ListTweets(c *fiber.Ctx) error {
	tweets, err := s.tweetService.ListTweets(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tweets)
}

// GetTweet handles GET /tweet/:tweetId
func (s *Server) GetTweet(c *fiber.Ctx) error {
	tweetID, err := parseID(c, "tweetId")
	if err != nil {
		return nil
	}

	detail, err := s.tweetService.GetTweet(c.UserContext(), tweetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail)
}

// LikeTweet handles POST /tweet/:tweetId/like
func (s *Server) LikeTweet(c *fiber.Ctx) error {
	tweetID, err := parseID(c, "tweetId")
	if err != nil {
		return nil
	}
	userID, ok := s.actingUser(c)
	if !ok {
		return nil
	}

	tweet, err := s.tweetService.LikeTweet(c.UserContext(), tweetID, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tweet)
}

// UnlikeTweet handles POST /tweet/:tweetId/unlike
func (s *Server) UnlikeTweet(c *fiber.Ctx) error {
	tweetID, err := parseID(c, "tweetId")
	if err != nil {
		return nil
	}
	userID, ok := s.actingUser(c)
	if !ok {
		return nil
	}

	tweet, err := s.tweetService.UnlikeTweet(c.UserContext(), tweetID, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tweet)
}

// actingUser reads {"id": user} from the body. On failure the error response
// has already been written.
func (s *Server) actingUser(c *fiber.Ctx) (uint, bool) {
	var ref UserRef
	if err := parseBody(c, &ref); err != nil {
		return 0, false
	}
	userID, err := requireID(ref.ID, "id")
	if err != nil {
		_ = respondError(c, err)
		return 0, false
	}
	tagUser(c, userID)
	return userID, true
}
