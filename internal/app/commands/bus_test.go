package commands_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentride/internal/app/commands"
)

type echo struct{ Text string }

func (echo) Key() string { return "test.echo" }

type other struct{}

func (other) Key() string { return "test.other" }

func TestDispatchTyped(t *testing.T) {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[echo, string](bus, echo{}.Key(), commands.HandlerFunc[echo, string](
		func(_ context.Context, cmd echo) (string, error) { return cmd.Text + "!", nil },
	))

	got, err := commands.Dispatch[echo, string](context.Background(), bus, echo{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi!", got)

	_, err = commands.Dispatch[echo, int](context.Background(), bus, echo{})
	assert.ErrorIs(t, err, commands.ErrResultType)

	_, err = commands.Dispatch[other, string](context.Background(), bus, other{})
	assert.ErrorIs(t, err, commands.ErrHandlerNotFound)

	_, err = commands.Dispatch[echo, string](context.Background(), nil, echo{})
	assert.ErrorIs(t, err, commands.ErrNilBus)

	assert.Equal(t, []string{"test.echo"}, bus.Keys())
}

func TestDispatchAcceptsPointerResults(t *testing.T) {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[echo, *string](bus, echo{}.Key(), commands.HandlerFunc[echo, *string](
		func(_ context.Context, cmd echo) (*string, error) {
			if cmd.Text == "" {
				return nil, nil
			}
			return &cmd.Text, nil
		},
	))

	got, err := commands.Dispatch[echo, string](context.Background(), bus, echo{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", got)

	got, err = commands.Dispatch[echo, string](context.Background(), bus, echo{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	bus := commands.NewInMemoryBus()
	h := commands.HandlerFunc[echo, string](func(context.Context, echo) (string, error) { return "", nil })
	commands.RegisterHandler[echo, string](bus, "k", h)
	assert.Panics(t, func() { commands.RegisterHandler[echo, string](bus, "k", h) })
	assert.Panics(t, func() { commands.RegisterHandler[echo, string](bus, "", h) })
}
