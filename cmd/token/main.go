package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/enerflow/metering/pkg/configuration"
	"github.com/enerflow/metering/pkg/middleware"
)

// Issues a bearer token for an existing actor, for local testing and
// operational scripts.
func main() {
	actorID := flag.Uint("actor", 0, "actor id to issue the token for")
	flag.Parse()
	if *actorID == 0 {
		log.Fatal("usage: token -actor <id>")
	}

	conf := configuration.Use()
	defer conf.Unload()

	signed, err := middleware.IssueToken(conf.JWTSecret, *actorID, conf.SessionDuration)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(signed)
}
