package handlers

import (
	"errors"
	"testing"

	"github.com/parlorchat/parlor/internal/chat"
)

func TestRoomErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{chat.ErrRoomLimit, "Maximum number of rooms reached"},
		{chat.ErrRoomExists, "Room already exists"},
		{chat.ErrMissingField, "Room name and password are required"},
		{errors.New("boom"), "Could not create room"},
	}
	for _, c := range cases {
		if got := roomErrorMessage(c.err); got != c.want {
			t.Fatalf("roomErrorMessage(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestJoinErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{chat.ErrRoomNotFound, "Room not found"},
		{chat.ErrBadCredential, "Incorrect password"},
		{chat.ErrAlreadyBound, "Already in a room"},
		{chat.ErrInvalidInvite, "Invalid or expired invite"},
		{chat.ErrMissingField, "Room name and username are required"},
		{errors.New("boom"), "Could not join room"},
	}
	for _, c := range cases {
		if got := joinErrorMessage(c.err); got != c.want {
			t.Fatalf("joinErrorMessage(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}
