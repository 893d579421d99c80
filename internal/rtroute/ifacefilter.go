package rtroute

// ApplyInterfaceFilter drops, from every route in db, nexthops whose IfName
// is in affected (MPLS POP_AND_LOOKUP nexthops have no IfName and are never
// dropped), mutating db in place and returning the resulting delta, per spec
// §4.3:
//   - if the best-nexthop set changes, an update is emitted.
//   - if the surviving nexthop set is empty, the route is deleted from db
//     and a delete is emitted.
func ApplyInterfaceFilter(db *RouteDatabase, filter func([]NextHop) []NextHop) *DatabaseDelta {
	d := &DatabaseDelta{}

	for dest, r := range db.UnicastRoutes {
		prevBest := BestNextHops(r.NextHops)
		valid := filter(r.NextHops)
		newBest := BestNextHops(valid)

		if len(newBest) > 0 && !NextHopsEqual(newBest, prevBest) {
			updated := r
			updated.NextHops = newBest
			d.UnicastRoutesToUpdate = append(d.UnicastRoutesToUpdate, updated)
		}

		if len(valid) == 0 {
			d.UnicastRoutesToDelete = append(d.UnicastRoutesToDelete, dest)
			delete(db.UnicastRoutes, dest)
			continue
		}
		r.NextHops = valid
		db.UnicastRoutes[dest] = r
	}

	for label, r := range db.MplsRoutes {
		prevBest := BestNextHops(r.NextHops)
		valid := filter(r.NextHops)
		newBest := BestNextHops(valid)

		if len(newBest) > 0 && !NextHopsEqual(newBest, prevBest) {
			updated := r
			updated.NextHops = newBest
			d.MplsRoutesToUpdate = append(d.MplsRoutesToUpdate, updated)
		}

		if len(valid) == 0 {
			d.MplsRoutesToDelete = append(d.MplsRoutesToDelete, label)
			delete(db.MplsRoutes, label)
			continue
		}
		r.NextHops = valid
		db.MplsRoutes[label] = r
	}

	return d
}
