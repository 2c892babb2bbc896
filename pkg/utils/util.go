package utils

// DereferenceSeed は、int64のポインタを安全にデリファレンスします。
// ポインタがnilの場合は0を返します。
func DereferenceSeed(seed *int64) int64 {
	if seed == nil {
		return 0
	}
	return *seed
}

// SeedToPtrInt32 は *int64 のシードを SDK 用の *int32 に変換します。
// int32 の範囲を超える値は上位ビットが切り捨てられますが、再現性の上では問題ありません。
func SeedToPtrInt32(seed *int64) *int32 {
	if seed == nil {
		return nil
	}
	v := int32(*seed)
	return &v
}
