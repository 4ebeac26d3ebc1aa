package service

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/d60-Lab/home-timeline/internal/model"
)

func ref(id string, ts int64) model.PostRef {
    return model.PostRef{PostID: id, AuthorID: "a", CreatedAt: ts}
}

func TestMergeRefsOrdering(t *testing.T) {
    a := []model.PostRef{ref("p9", 900), ref("p5", 500), ref("p1", 100)}
    b := []model.PostRef{ref("p8", 800), ref("p4", 400)}
    c := []model.PostRef{ref("p7", 700)}

    out := MergeRefs([][]model.PostRef{a, b, c}, 10)
    require.Len(t, out, 6)
    for i := 1; i < len(out); i++ {
        assert.True(t, out[i-1].After(out[i]), "out[%d] should sort before out[%d]", i-1, i)
    }
}

func TestMergeRefsDedupe(t *testing.T) {
    // 同一帖同时出现在 cache 切片与 pull 切片
    a := []model.PostRef{ref("p2", 200), ref("p1", 100)}
    b := []model.PostRef{ref("p2", 200)}

    out := MergeRefs([][]model.PostRef{a, b}, 10)
    require.Len(t, out, 2)
    assert.Equal(t, "p2", out[0].PostID)
    assert.Equal(t, "p1", out[1].PostID)
}

func TestMergeRefsLimit(t *testing.T) {
    a := []model.PostRef{ref("p5", 500), ref("p3", 300), ref("p1", 100)}
    b := []model.PostRef{ref("p4", 400), ref("p2", 200)}

    out := MergeRefs([][]model.PostRef{a, b}, 3)
    require.Len(t, out, 3)
    assert.Equal(t, []string{"p5", "p4", "p3"}, []string{out[0].PostID, out[1].PostID, out[2].PostID})
}

func TestMergeRefsTieBreak(t *testing.T) {
    a := []model.PostRef{ref("pa", 100)}
    b := []model.PostRef{ref("pz", 100)}

    out := MergeRefs([][]model.PostRef{a, b}, 10)
    require.Len(t, out, 2)
    // 同时间戳 post_id 降序
    assert.Equal(t, "pz", out[0].PostID)
    assert.Equal(t, "pa", out[1].PostID)
}

func TestMergeRefsEmptyInputs(t *testing.T) {
    assert.Empty(t, MergeRefs(nil, 10))
    assert.Empty(t, MergeRefs([][]model.PostRef{nil, {}}, 10))
}
