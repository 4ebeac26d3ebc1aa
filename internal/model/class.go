package model

// AuthorClass 作者分级，决定 push/pull 扇出策略
type AuthorClass int

const (
    ClassRegular AuthorClass = iota
    ClassCelebrity
    ClassMegaCelebrity
)

func (c AuthorClass) String() string {
    switch c {
    case ClassCelebrity:
        return "celebrity"
    case ClassMegaCelebrity:
        return "mega_celebrity"
    default:
        return "regular"
    }
}

// ClassifyCount 按粉丝数分级；下界包含（恰好等于阈值仍属低一级）
func ClassifyCount(followers, celebrityThreshold, megaThreshold int64) AuthorClass {
    if followers > megaThreshold {
        return ClassMegaCelebrity
    }
    if followers > celebrityThreshold {
        return ClassCelebrity
    }
    return ClassRegular
}
