package access

import (
	"dataward.org/internal/model"
	"dataward.org/internal/store"
)

// strategySet groups the four strategies a ResourceManager delegates to.
type strategySet struct {
	creator   Creator
	retriever Retriever
	updater   Updater
	deleter   Deleter
}

type strategyFactory func(kind model.Kind, sess *store.Session, actor *model.User) strategySet

func ownedStrategies(kind model.Kind, sess *store.Session, actor *model.User) strategySet {
	m := manipulator{kind: kind, sess: sess, actor: actor}
	return strategySet{
		creator:   ownedCreator{m},
		retriever: ownedRetriever{m},
		updater:   ownedUpdater{m},
		deleter:   ownedDeleter{m},
	}
}

func userStrategies(kind model.Kind, sess *store.Session, actor *model.User) strategySet {
	m := manipulator{kind: kind, sess: sess, actor: actor}
	return strategySet{
		creator:   userCreator{m},
		retriever: userRetriever{m},
		updater:   userUpdater{m},
		deleter:   userDeleter{m},
	}
}

// strategyRegistry maps each managed record kind to the strategy
// implementations that enforce its policy.
var strategyRegistry = map[model.Kind]strategyFactory{
	model.KindUser:        userStrategies,
	model.KindTag:         ownedStrategies,
	model.KindAPIClient:   ownedStrategies,
	model.KindAPIToken:    ownedStrategies,
	model.KindUserSetting: ownedStrategies,
}
