// SPDX-License-Identifier: GPL-3.0-or-later

package ipwatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApiErrorMessage(t *testing.T) {
	stopped := &ApiError{Stopped: true}
	assert.Equal(t, "api listener: stopped", stopped.Error())

	native := &ApiError{Native: errors.New("boom")}
	assert.Contains(t, native.Error(), "boom")
}

func TestFakeApiListenerStreamAndClose(t *testing.T) {
	l := newFakeApiListener()
	ch := l.Stream(nil)

	go func() {
		l.notifyCh <- ApiNotification{}
		close(l.notifyCh)
	}()

	notif := <-ch
	assert.Nil(t, notif.Err)

	_, ok := <-ch
	assert.False(t, ok)

	assert.NoError(t, l.Close())
	assert.True(t, l.isClosed())
}
