package controllers

import (
	"context"
	"math"
	"net/http"
	"sort"

	"github.com/dcode-github/realestate_platform/backend/models"
	"github.com/dcode-github/realestate_platform/backend/store"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

const (
	trendMonths  = 12
	topViewedMax = 5
)

var priceBoundaries = []float64{0, 100000, 250000, 500000, 750000, 1000000, 2000000, math.Inf(1)}

var closedDeals = bson.M{"status": bson.M{"$in": bson.A{models.StatusSold, models.StatusRented}}}

// ratio returns part/whole as a percentage rounded to one decimal, or 0 when
// whole is 0.
func ratio(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}

func growth(current, previous int64) float64 {
	if previous == 0 {
		return 0
	}
	return math.Round(float64(current-previous)/float64(previous)*1000) / 10
}

type counter struct {
	coll   store.Collection
	filter bson.M
	out    *int64
}

// countAll runs the counts concurrently and stops at the first failure.
func countAll(ctx context.Context, counts []counter) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		c := c
		g.Go(func() error {
			n, err := c.coll.Count(ctx, c.filter)
			if err != nil {
				return err
			}
			*c.out = n
			return nil
		})
	}
	return g.Wait()
}

// GetDashboard summarises the caller's properties, leads, appointments and
// conversations. Admins see everything.
func GetDashboard(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		now := d.now()
		propertyScope := scopeFor(actor, "agent")
		leadScope := scopeFor(actor, "assignedTo")
		apptScope := appointmentScope(actor)
		today := dayStart(now)
		thisMonth, lastMonth := monthStart(now, 0), monthStart(now, -1)

		properties := d.coll(store.Properties)
		leads := d.coll(store.Leads)
		appointments := d.coll(store.Appointments)

		var (
			totalProperties, available, sold, rented, pendingReview int64
			totalLeads, newLeads, lastMonthLeads, qualified, closed int64
			todayAppointments, upcoming                              int64
		)
		counts := []counter{
			{properties, propertyScope, &totalProperties},
			{properties, and(propertyScope, bson.M{"status": bson.M{"$in": bson.A{models.StatusForSale, models.StatusForRent}}}), &available},
			{properties, and(propertyScope, bson.M{"status": models.StatusSold}), &sold},
			{properties, and(propertyScope, bson.M{"status": models.StatusRented}), &rented},
			{properties, and(propertyScope, bson.M{"status": models.StatusPendingReview}), &pendingReview},
			{leads, leadScope, &totalLeads},
			{leads, and(leadScope, bson.M{"createdAt": bson.M{"$gte": thisMonth}}), &newLeads},
			{leads, and(leadScope, bson.M{"createdAt": bson.M{"$gte": lastMonth, "$lt": thisMonth}}), &lastMonthLeads},
			{leads, and(leadScope, bson.M{"status": models.LeadQualified}), &qualified},
			{leads, and(leadScope, bson.M{"status": models.LeadClosed}), &closed},
			{appointments, and(apptScope, bson.M{"date": bson.M{"$gte": today, "$lt": today.AddDate(0, 0, 1)}}), &todayAppointments},
			{appointments, and(apptScope, bson.M{"date": bson.M{"$gte": today}, "status": models.AppointmentScheduled}), &upcoming},
		}

		var totalViews, unread float64
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error { return countAll(ctx, counts) })
		g.Go(func() error {
			var err error
			totalViews, err = properties.Sum(ctx, propertyScope, "views")
			return err
		})
		g.Go(func() error {
			var err error
			unread, err = d.coll(store.Conversations).Sum(ctx,
				and(scopeFor(actor, "agent"), bson.M{"status": models.ConversationActive}), "unreadCount")
			return err
		})
		if err := g.Wait(); err != nil {
			d.handleError(w, r, err)
			return
		}

		ok(w, map[string]interface{}{
			"properties": map[string]int64{
				"total":         totalProperties,
				"available":     available,
				"sold":          sold,
				"rented":        rented,
				"pendingReview": pendingReview,
			},
			"leads": map[string]interface{}{
				"total":          totalLeads,
				"new":            newLeads,
				"qualified":      qualified,
				"conversionRate": ratio(closed, totalLeads),
				"growth":         growth(newLeads, lastMonthLeads),
			},
			"appointments": map[string]int64{
				"today":    todayAppointments,
				"upcoming": upcoming,
			},
			"engagement": map[string]int64{
				"totalViews":     int64(totalViews),
				"unreadMessages": int64(unread),
			},
		})
	}
}

func GetPropertyAnalytics(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		scope := scopeFor(actor, "agent")
		properties := d.coll(store.Properties)

		var (
			byType, byStatus, byPurpose []store.Group
			priceRanges                 []store.Bucket
			monthly                     []store.Month
		)
		topViewed := []bson.M{}
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() (err error) {
			byType, err = properties.GroupBy(ctx, scope, "propertyType", "")
			return err
		})
		g.Go(func() (err error) {
			byStatus, err = properties.GroupBy(ctx, scope, "status", "")
			return err
		})
		g.Go(func() (err error) {
			byPurpose, err = properties.GroupBy(ctx, scope, "listingType", "")
			return err
		})
		g.Go(func() (err error) {
			priceRanges, err = properties.Buckets(ctx, scope, "price", priceBoundaries)
			return err
		})
		g.Go(func() (err error) {
			monthly, err = properties.Monthly(ctx, scope, "createdAt", "", trendMonths)
			return err
		})
		g.Go(func() error {
			return properties.Find(ctx, scope, store.FindOptions{
				Sort:       bson.D{{Key: "views", Value: -1}, {Key: "_id", Value: 1}},
				Limit:      topViewedMax,
				Projection: bson.M{"title": 1, "slug": 1, "views": 1, "images": 1, "price": 1, "address": 1},
			}, &topViewed)
		})
		if err := g.Wait(); err != nil {
			d.handleError(w, r, err)
			return
		}

		ok(w, map[string]interface{}{
			"byType":          byType,
			"byStatus":        byStatus,
			"byPurpose":       byPurpose,
			"priceRanges":     priceRanges,
			"topViewed":       topViewed,
			"monthlyListings": monthly,
		})
	}
}

func GetLeadAnalytics(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := currentActor(r)
		if err != nil {
			d.handleError(w, r, err)
			return
		}
		scope := scopeFor(actor, "assignedTo")
		leads := d.coll(store.Leads)

		var (
			byStatus, bySource []store.Group
			monthly            []store.Month
		)
		called := []models.Lead{}
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() (err error) {
			byStatus, err = leads.GroupBy(ctx, scope, "status", "")
			return err
		})
		g.Go(func() (err error) {
			bySource, err = leads.GroupBy(ctx, scope, "source", "")
			return err
		})
		g.Go(func() (err error) {
			monthly, err = leads.Monthly(ctx, scope, "createdAt", "", trendMonths)
			return err
		})
		g.Go(func() error {
			return leads.Find(ctx, and(scope, bson.M{"activities.type": models.ActivityCall}), store.FindOptions{}, &called)
		})
		if err := g.Wait(); err != nil {
			d.handleError(w, r, err)
			return
		}

		ok(w, map[string]interface{}{
			"byStatus":        byStatus,
			"bySource":        bySource,
			"monthlyLeads":    monthly,
			"avgResponseTime": avgResponseHours(called),
		})
	}
}

// avgResponseHours is the mean time from a lead's creation to its first
// call, in whole hours.
func avgResponseHours(leads []models.Lead) int64 {
	var total float64
	var n int
	for _, lead := range leads {
		for _, a := range lead.Activities {
			if a.Type == models.ActivityCall {
				total += a.CreatedAt.Sub(lead.CreatedAt).Hours()
				n++
				break
			}
		}
	}
	if n == 0 {
		return 0
	}
	return int64(math.Round(total / float64(n)))
}

// GetRevenueAnalytics reports the value of sold and rented properties.
func GetRevenueAnalytics(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		properties := d.coll(store.Properties)

		var (
			monthly []store.Month
			byType  []store.Group
			total   float64
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() (err error) {
			monthly, err = properties.Monthly(ctx, closedDeals, "updatedAt", "price", trendMonths)
			return err
		})
		g.Go(func() (err error) {
			byType, err = properties.GroupBy(ctx, closedDeals, "propertyType", "price")
			return err
		})
		g.Go(func() (err error) {
			total, err = properties.Sum(ctx, closedDeals, "price")
			return err
		})
		if err := g.Wait(); err != nil {
			d.handleError(w, r, err)
			return
		}
		sort.SliceStable(byType, func(i, j int) bool { return byType[i].Sum > byType[j].Sum })

		ok(w, map[string]interface{}{
			"monthlyRevenue": monthly,
			"totalRevenue":   total,
			"byType":         byType,
		})
	}
}
