package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotificationTypeClassification(t *testing.T) {
	tests := []struct {
		typ       NotificationType
		isControl bool
		isFile    bool
		isAccount bool
	}{
		{TypeFileUploaded, false, true, false},
		{TypeVersionUploaded, false, true, false},
		{TypeFileShared, false, true, false},
		{TypeUserBlocked, false, false, true},
		{TypeRoleAssigned, false, false, true},
		{TypeQuotaChanged, false, false, true},
		{TypePlanChanged, false, false, true},
		{TypeNotificationRead, true, false, false},
		{TypeNotificationDeleted, true, false, false},
		{TypeAllNotificationsRead, true, false, false},
		{TypeAllNotificationsDeleted, true, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.isControl, tt.typ.IsControl())
			assert.Equal(t, tt.isFile, tt.typ.IsFileActivity())
			assert.Equal(t, tt.isAccount, tt.typ.IsAccountActivity())
		})
	}
}

func TestNotificationKeyPrefersID(t *testing.T) {
	assert.Equal(t, "rest-id", Notification{ID: "rest-id", NotificationID: "push-id"}.Key())
	assert.Equal(t, "push-id", Notification{NotificationID: "push-id"}.Key())
	assert.Empty(t, Notification{}.Key())
}

func TestSessionRoles(t *testing.T) {
	s := Session{Roles: []string{"USER", "ADMIN"}}
	assert.True(t, s.HasRole("ADMIN"))
	assert.False(t, s.HasRole("AUDITOR"))
	assert.True(t, s.IsAdmin())
	assert.True(t, Session{Roles: []string{"ROLE_ADMIN"}}.IsAdmin())
	assert.False(t, Session{Roles: []string{"USER"}}.IsAdmin())
}
