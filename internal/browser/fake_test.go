package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avolkovs/applybot/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_FindReturnsConfiguredElement(t *testing.T) {
	f := NewFake()
	f.SetText(".jobs-search-box", "Search jobs")

	el, err := f.Find(context.Background(), ".jobs-search-box", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Search jobs", el.Text())
	assert.True(t, el.Visible())
}

func TestFake_FindTimesOutWithTypedError(t *testing.T) {
	f := NewFake()

	_, err := f.Find(context.Background(), ".missing", time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrTimeout))
}

func TestFake_OnPollSimulatesAsyncAppearance(t *testing.T) {
	f := NewFake()
	polls := 0
	f.OnPoll = func(f *Fake) {
		polls++
		if polls == 3 {
			f.SetText(".late", "finally")
		}
	}

	el, err := f.Find(context.Background(), ".late", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "finally", el.Text())
	assert.Equal(t, 3, polls)
}

func TestFake_ClickHookMutatesDOM(t *testing.T) {
	f := NewFake()
	f.SetText("button.next", "Next")
	f.OnClick["button.next"] = func(f *Fake) {
		f.SetText(".confirmation", "Application submitted")
	}

	el, err := f.Find(context.Background(), "button.next", time.Second)
	require.NoError(t, err)
	require.NoError(t, f.Click(context.Background(), el))

	assert.Equal(t, 1, f.ClickCount("button.next"))
	assert.True(t, f.Has(".confirmation"))
}

func TestFake_TypeTextAccumulatesValue(t *testing.T) {
	f := NewFake()
	f.Set("input[type='text']", &FakeElement{})

	el, err := f.Find(context.Background(), "input[type='text']", time.Second)
	require.NoError(t, err)
	require.NoError(t, f.TypeText(context.Background(), el, "alex"))
	require.NoError(t, f.TypeText(context.Background(), el, "@example.test"))

	assert.Equal(t, "alex@example.test", el.Attr("value"))
}

func TestFake_SetKeepsElementAliases(t *testing.T) {
	f := NewFake()
	f.Set("input[type='text'], textarea",
		&FakeElement{Sel: "email"},
		&FakeElement{},
	)

	els, err := f.FindAll(context.Background(), "input[type='text'], textarea")
	require.NoError(t, err)
	require.Len(t, els, 2)
	assert.Equal(t, "email", els[0].Selector())
	assert.Equal(t, "input[type='text'], textarea", els[1].Selector())
}

func TestFake_WaitUntilHonorsBudget(t *testing.T) {
	f := NewFake()
	calls := 0
	ok := f.WaitUntil(context.Background(), time.Second, func(ctx context.Context) bool {
		calls++
		return false
	})
	assert.False(t, ok)
	assert.Greater(t, calls, 1)
}

func TestPacer_ZeroRangesDoNotSleep(t *testing.T) {
	p := NewPacer(0, 0, 0, 0)
	start := time.Now()
	p.Settle(context.Background())
	p.KeyDelay(context.Background())
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestPacer_RespectsContextCancellation(t *testing.T) {
	p := NewPacer(10*time.Second, 10*time.Second, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	p.Settle(ctx)
	assert.Less(t, time.Since(start), time.Second, "cancelled context must cut the settle delay short")
}
