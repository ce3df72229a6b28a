package server

import (
	"github.com/gofiber/fiber/v2"
)

// FollowRequest is the body of POST /follow and POST /unfollow.
type FollowRequest struct {
	ID     flexID `json:"id"`
	Follow flexID `json:"follow"`
}

func (r FollowRequest) ids() (follower, followee uint, err error) {
	if follower, err = requireID(r.ID, "id"); err != nil {
		return 0, 0, err
	}
	if followee, err = requireID(r.Follow, "follow"); err != nil {
		return 0, 0, err
	}
	return follower, followee, nil
}

// Follow handles POST /follow
func (s *Server) Follow(c *fiber.Ctx) error {
	var req FollowRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	follower, followee, err := req.ids()
	if err != nil {
		return respondError(c, err)
	}
	tagUser(c, follower)

	user, err := s.followService.Follow(c.UserContext(), follower, followee)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// Unfollow handles POST /unfollow
func (s *Server) Unfollow(c *fiber.Ctx) error {
	var req FollowRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	follower, followee, err := req.ids()
	if err != nil {
		return respondError(c, err)
	}
	tagUser(c, follower)

	user, err := s.followService.Unfollow(c.UserContext(), follower, followee)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetTimeline handles GET /timeline/:id
func (s *Server) GetTimeline(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	timeline, err := s.timelineService.Timeline(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(timeline)
}
