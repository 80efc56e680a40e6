package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChromeOptions_PageLoadTimeout(t *testing.T) {
	assert.Equal(t, 60*time.Second, ChromeOptions{}.pageLoadTimeout())
	assert.Equal(t, 15*time.Second, ChromeOptions{PageTimeout: 15 * time.Second}.pageLoadTimeout())
}
