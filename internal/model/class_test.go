package model

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestClassifyCountBoundaries(t *testing.T) {
    const celeb, mega = 1_000_000, 10_000_000

    cases := []struct {
        followers int64
        want      AuthorClass
    }{
        {0, ClassRegular},
        {celeb - 1, ClassRegular},
        {celeb, ClassRegular}, // 恰好等于阈值仍属低一级
        {celeb + 1, ClassCelebrity},
        {mega, ClassCelebrity},
        {mega + 1, ClassMegaCelebrity},
    }
    for _, c := range cases {
        assert.Equal(t, c.want, ClassifyCount(c.followers, celeb, mega), "followers=%d", c.followers)
    }
}

func TestRefOrdering(t *testing.T) {
    newer := PostRef{PostID: "b", CreatedAt: 200}
    older := PostRef{PostID: "a", CreatedAt: 100}
    assert.True(t, newer.After(older))
    assert.False(t, older.After(newer))

    // 同时间戳按 post_id 降序
    tieHigh := PostRef{PostID: "z", CreatedAt: 100}
    tieLow := PostRef{PostID: "a", CreatedAt: 100}
    assert.True(t, tieHigh.After(tieLow))

    assert.True(t, older.Before(200, "b"))
    assert.True(t, tieLow.Before(100, "z"))
    assert.False(t, tieHigh.Before(100, "z"))
}
