// SPDX-License-Identifier: GPL-3.0-or-later

package platformerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyNilIsOpaque(t *testing.T) {
	assert.Equal(t, Opaque, Classify(nil))
}

func TestClassifyUnrecognizedErrorIsOpaque(t *testing.T) {
	assert.Equal(t, Opaque, Classify(errors.New("some non-errno failure")))
}
