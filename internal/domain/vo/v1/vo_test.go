package v1

import (
	"testing"

	"github.com/f-lab-edu/stock-simulator/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewMoney(t *testing.T) {
	t.Run("accepts zero and positive amounts", func(t *testing.T) {
		m, err := NewMoney(0)
		require.NoError(t, err)
		assert.True(t, m.IsZero())

		m, err = NewMoney(1500)
		require.NoError(t, err)
		assert.Equal(t, int64(1500), m.Amount())
	})

	t.Run("rejects negative amounts", func(t *testing.T) {
		_, err := NewMoney(-1)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrNegativeAmount))
	})
}

func TestMoney_Minus(t *testing.T) {
	t.Run("subtracts within balance", func(t *testing.T) {
		m, err := MustMoney(1000).Minus(MustMoney(400))
		require.NoError(t, err)
		assert.Equal(t, int64(600), m.Amount())
	})

	t.Run("fails when subtrahend exceeds balance", func(t *testing.T) {
		_, err := MustMoney(300).Minus(MustMoney(301))
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrInsufficientBalance))
	})

	t.Run("allows exact drain to zero", func(t *testing.T) {
		m, err := MustMoney(300).Minus(MustMoney(300))
		require.NoError(t, err)
		assert.True(t, m.IsZero())
	})
}

func TestMoney_Multiply(t *testing.T) {
	total := MustMoney(250).Multiply(MustQuantity(4))
	assert.Equal(t, int64(1000), total.Amount())
}

func TestQuantity_Minus(t *testing.T) {
	t.Run("subtracts within holdings", func(t *testing.T) {
		q, err := MustQuantity(10).Minus(MustQuantity(3))
		require.NoError(t, err)
		assert.Equal(t, int64(7), q.Value())
	})

	t.Run("fails when subtrahend exceeds holdings", func(t *testing.T) {
		_, err := MustQuantity(2).Minus(MustQuantity(3))
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrInsufficientQuantity))
	})
}

func TestQuantity_Min(t *testing.T) {
	assert.Equal(t, MustQuantity(3), MustQuantity(5).Min(MustQuantity(3)))
	assert.Equal(t, MustQuantity(3), MustQuantity(3).Min(MustQuantity(5)))
}

func TestMoney_Properties(t *testing.T) {
	t.Run("plus then minus round-trips", rapid.MakeCheck(func(t *rapid.T) {
		a := MustMoney(rapid.Int64Range(0, 1<<40).Draw(t, "a"))
		b := MustMoney(rapid.Int64Range(0, 1<<40).Draw(t, "b"))

		got, err := a.Plus(b).Minus(b)
		require.NoError(t, err)
		assert.True(t, got.Equals(a))
	}))

	t.Run("minus never goes negative", rapid.MakeCheck(func(t *rapid.T) {
		a := MustMoney(rapid.Int64Range(0, 1<<40).Draw(t, "a"))
		b := MustMoney(rapid.Int64Range(0, 1<<40).Draw(t, "b"))

		got, err := a.Minus(b)
		if b.Amount() > a.Amount() {
			assert.Error(t, err)
			return
		}
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.Amount(), int64(0))
	}))
}

func TestQuantity_Properties(t *testing.T) {
	t.Run("plus then minus round-trips", rapid.MakeCheck(func(t *rapid.T) {
		a := MustQuantity(rapid.Int64Range(0, 1<<40).Draw(t, "a"))
		b := MustQuantity(rapid.Int64Range(0, 1<<40).Draw(t, "b"))

		got, err := a.Plus(b).Minus(b)
		require.NoError(t, err)
		assert.True(t, got.Equals(a))
	}))
}
