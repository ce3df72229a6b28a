package server

import (
	"minitweet/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SignUpRequest is the body of POST /sign-up.
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp handles POST /sign-up
func (s *Server) SignUp(c *fiber.Ctx) error {
	var req SignUpRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetUser handles GET /user/:id
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	profile, err := s.userService.GetProfile(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// UpdateUser handles PUT /user/:id
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	var patch service.UserPatch
	if err := parseBody(c, &patch); err != nil {
		return nil
	}
	tagUser(c, id)

	user, err := s.userService.UpdateUser(c.UserContext(), id, patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// ListUsers handles GET /users
func (s *Server) ListUsers(c *fiber.Ctx) error {
	profiles, err := s.userService.ListProfiles(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profiles)
}
