package competition

import (
	"cmp"
	"slices"
)

// Standing 房间排名中的一行
type Standing struct {
	Rank         int
	UserID       string
	PointsInRoom int
}

// RankStandings 积分降序；同分先加入者靠前，再按 UserID 保证稳定
// 同分的成员共享名次（1, 2, 2, 4）。
func RankStandings(members []*LeagueMember) []Standing {
	sorted := slices.Clone(members)
	slices.SortFunc(sorted, func(a, b *LeagueMember) int {
		if c := cmp.Compare(b.PointsInRoom(), a.PointsInRoom()); c != 0 {
			return c
		}
		if c := a.JoinedAt().Compare(b.JoinedAt()); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID(), b.UserID())
	})

	standings := make([]Standing, len(sorted))
	for i, m := range sorted {
		rank := i + 1
		if i > 0 && m.PointsInRoom() == sorted[i-1].PointsInRoom() {
			rank = standings[i-1].Rank
		}
		standings[i] = Standing{Rank: rank, UserID: m.UserID(), PointsInRoom: m.PointsInRoom()}
	}
	return standings
}
