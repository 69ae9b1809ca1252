package session

import (
	"github.com/rpggio/liveshop/internal/domain/negotiation"
)

// Actor is the role issuing a call
type Actor string

const (
	ActorStaff    Actor = "STAFF"
	ActorCustomer Actor = "CUSTOMER"
	// ActorSystem is used for reconciliation work nobody asked for, such as idle expiry.
	ActorSystem Actor = "SYSTEM"
)

// ParseActor accepts the two caller roles.
func ParseActor(value string) (Actor, error) {
	switch a := Actor(value); a {
	case ActorStaff, ActorCustomer:
		return a, nil
	default:
		return "", ErrForbidden
	}
}

func (a Actor) party() negotiation.Party {
	if a == ActorCustomer {
		return negotiation.PartyCustomer
	}
	return negotiation.PartyStaff
}

// Principal identifies the caller of a mutating operation.
type Principal struct {
	Actor Actor
	// ClientID scopes a customer to the sessions of its own client.
	ClientID string
	// UserID identifies a staff member.
	UserID string
}

// Staff builds a staff principal.
func Staff(userID string) Principal {
	return Principal{Actor: ActorStaff, UserID: userID}
}

// Customer builds a customer principal bound to a client.
func Customer(clientID string) Principal {
	return Principal{Actor: ActorCustomer, ClientID: clientID}
}

var systemPrincipal = Principal{Actor: ActorSystem, UserID: "system"}

func requireStaff(p Principal) error {
	if p.Actor != ActorStaff {
		return ErrForbidden
	}
	return nil
}

func requireCustomer(p Principal) error {
	if p.Actor != ActorCustomer {
		return ErrForbidden
	}
	return nil
}

// authorize checks the caller may see or touch the session.
func authorize(p Principal, sess *Session) error {
	switch p.Actor {
	case ActorStaff, ActorSystem:
		return nil
	case ActorCustomer:
		if p.ClientID == "" || p.ClientID != sess.ClientID {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}
