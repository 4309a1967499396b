package utils

import (
	"math/big"
)

// BN converts any integer type to a *big.Int.
func BN[T int | int8 | int16 | int32 | int64 | uint | uint8 | uint16 | uint32 | uint64](value T) *big.Int {
	switch any(value).(type) {
	case uint, uint8, uint16, uint32, uint64:
		return new(big.Int).SetUint64(uint64(value))
	default:
		return big.NewInt(int64(value))
	}
}

func IntX(x *big.Int) *big.Int {
	return new(big.Int).Set(x)
}

func AddX(x *big.Int, y ...*big.Int) *big.Int {
	z := new(big.Int).Set(x)
	for _, v := range y {
		z.Add(z, v)
	}
	return z
}

func SubX(x *big.Int, y ...*big.Int) *big.Int {
	z := new(big.Int).Set(x)
	for _, v := range y {
		z.Sub(z, v)
	}
	return z
}

func MulX(x *big.Int, y ...*big.Int) *big.Int {
	z := new(big.Int).Set(x)
	for _, v := range y {
		z.Mul(z, v)
	}
	return z
}

func DivX(x *big.Int, y ...*big.Int) *big.Int {
	z := new(big.Int).Set(x)
	for _, v := range y {
		z.Div(z, v)
	}
	return z
}

func AbsX(x *big.Int) *big.Int {
	return new(big.Int).Abs(x)
}

func MinX(x *big.Int, y *big.Int) *big.Int {
	if x.Cmp(y) <= 0 {
		return IntX(x)
	}
	return IntX(y)
}

func MaxX(x *big.Int, y *big.Int) *big.Int {
	if x.Cmp(y) >= 0 {
		return IntX(x)
	}
	return IntX(y)
}
