package gateway

import (
	"net/http"
	"strings"

	"github.com/example/foodshop/pkg/shop"
	"github.com/gin-gonic/gin"
)

type registerBody struct {
	IDToken  string `json:"id_token"`
	FullName string `json:"full_name"`
}

type loginBody struct {
	IDToken string `json:"id_token"`
}

func (g *Gateway) register(c *gin.Context) {
	var body registerBody
	if !g.bindJSON(c, &body) {
		return
	}
	session, err := g.deps.Accounts.Register(c.Request.Context(), body.IDToken, body.FullName)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, session)
}

func (g *Gateway) login(c *gin.Context) {
	var body loginBody
	if !g.bindJSON(c, &body) {
		return
	}
	session, err := g.deps.Accounts.Login(c.Request.Context(), body.IDToken)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, session)
}

// lookupUser only answers for the caller's own number.
func (g *Gateway) lookupUser(c *gin.Context) {
	mobile := strings.TrimSpace(c.Query("mobile"))
	if mobile != sessionClaims(c).Phone {
		g.fail(c, shop.ErrForbidden)
		return
	}

	user, exists, err := g.deps.Accounts.CheckUserExists(c.Request.Context(), mobile)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"exists": exists, "user": user})
}
