package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	FixesReceived        atomic.Int64
	FixesRejected        atomic.Int64
	GeofenceAlertsRaised atomic.Int64
	BatteryAlertsRaised  atomic.Int64
	FeedSubscribers      atomic.Int64
	FeedEventsDelivered  atomic.Int64
)

func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "pettrack_fixes_received_total %d\n", FixesReceived.Load())
	fmt.Fprintf(w, "pettrack_fixes_rejected_total %d\n", FixesRejected.Load())
	fmt.Fprintf(w, "pettrack_geofence_alerts_total %d\n", GeofenceAlertsRaised.Load())
	fmt.Fprintf(w, "pettrack_battery_alerts_total %d\n", BatteryAlertsRaised.Load())
	fmt.Fprintf(w, "pettrack_feed_subscribers %d\n", FeedSubscribers.Load())
	fmt.Fprintf(w, "pettrack_feed_events_delivered_total %d\n", FeedEventsDelivered.Load())
}
