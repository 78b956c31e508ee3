package handlers

import (
	"eventcontrol/internal/settlement"
	solanapkg "eventcontrol/pkg/solana"
)

var (
	engine   *settlement.Engine
	keystore *solanapkg.Keystore
)

// Init wires the shared collaborators into the handler package. Must be
// called before any route is served.
func Init(e *settlement.Engine, k *solanapkg.Keystore) {
	engine = e
	keystore = k
}
