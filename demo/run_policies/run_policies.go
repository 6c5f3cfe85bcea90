package main

import (
	"flag"
	"log"
	"os"

	"github.com/Martoon-00/sdn-policies/topology"
)

func main() {
	log.SetFlags(log.Lshortfile)
	configPath := flag.String("config", "", "path to the topology yaml file")
	flag.Parse()
	if *configPath == "" {
		log.Fatalln("ERROR: -config is required")
	}
	by, err := os.ReadFile(*configPath)
	if err != nil {
		log.Fatalln("Error Reading Config: ", err)
	}
	cfg, err := topology.Parse(by)
	if err != nil {
		log.Fatalln("Error Parsing Config: ", err)
	}
	mon, err := topology.Launch(cfg)
	if err != nil {
		log.Fatalln("Error Launching Topology: ", err)
	}
	mon.AwaitTermination()

	st := mon.Snapshot()
	log.Printf("run finished at %v, %v policies proposed", mon.Now(), len(st.Proposer.Proposed))
	for _, l := range st.Learners {
		accepted := len(topology.AcceptedPolicies(l.Learned))
		log.Printf("learner %v: %v commands learned, %v accepted", l.ID, l.Learned.Len(), accepted)
	}
	if errs := mon.Errors(); len(errs) > 0 {
		for _, e := range errs {
			log.Println("protocol violation: ", e)
		}
		os.Exit(1)
	}
}
