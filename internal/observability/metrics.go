package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UsersRegistered counts successful sign-ups.
	UsersRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minitweet_users_registered_total",
		Help: "Total number of registered users",
	})

	// TweetsPosted counts tweets appended to the log.
	TweetsPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minitweet_tweets_posted_total",
		Help: "Total number of tweets posted",
	})

	// TweetsDeleted counts tweets removed from the log by match mode.
	TweetsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minitweet_tweets_deleted_total",
		Help: "Total number of tweets deleted",
	}, []string{"match"})

	// TweetsRejected counts tweet posts rejected by validation.
	TweetsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minitweet_tweets_rejected_total",
		Help: "Total number of rejected tweet posts by reason",
	}, []string{"reason"})

	// FollowEvents counts follow graph mutations.
	FollowEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minitweet_follow_events_total",
		Help: "Total follow and unfollow operations",
	}, []string{"action"})

	// LikeEvents counts like set mutations.
	LikeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minitweet_like_events_total",
		Help: "Total like and unlike operations",
	}, []string{"action"})

	// TimelineSize records how many tweets each assembled timeline holds.
	TimelineSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "minitweet_timeline_size",
		Help:    "Number of tweets in assembled timelines",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minitweet_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})
)
