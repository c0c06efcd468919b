// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package gin wraps the gin-gonic web framework, so the rest of the
// project may create engines and middlewares without importing it.
// It also provides the TokenAuth middleware which guards the REST API
// of the dtransfer with a bearer token.
package gin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/momeni/dtransfer/pkg/core/log"
	"github.com/momeni/dtransfer/pkg/core/scram"
)

type HandlerFunc = gin.HandlerFunc
type Engine = gin.Engine

func New(middlewares ...HandlerFunc) *Engine {
	e := gin.New()
	e.Use(middlewares...)
	return e
}

func Logger() HandlerFunc {
	return gin.Logger()
}

func Recovery() HandlerFunc {
	return gin.Recovery()
}

// TokenAuth returns a middleware which rejects the requests which do
// not present a bearer token matching the hash string (as verified by
// the v verifier) with the 401 status code.
func TokenAuth(v scram.Verifier, hash string) HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c, "missing bearer token")
			return
		}
		valid, err := v.Verify(token, hash)
		if err != nil {
			log.Error(c, "verifying api token", log.Err("err", err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"detail": "token verification failed",
			})
			return
		}
		if !valid {
			unauthorized(c, "invalid bearer token")
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", `Bearer realm="dtransfer"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
}
