package main

import (
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"strings"
	"time"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"

	"git.fiblab.net/sim/depotassign/assign"
)

var (
	// 输入表
	demandPathStr   = flag.String("demand", "", "route demand table [format: {fspath} or {db}.{col}]")
	distancePathStr = flag.String("distance", "", "depot-route distance matrix [format: {fspath} or {db}.{col}]")
	timePathStr     = flag.String("time", "", "depot-route time matrix [format: {fspath} or {db}.{col}]")
	capacityPathStr = flag.String("capacities", "", "depot capacity table [format: {fspath} or {db}.{col}]")
	mongoURI        = flag.String("mongo_uri", "", "mongo db uri")

	// 求解配置
	objective       = flag.String("objective", "distance", "optimization objective [distance, time]")
	mode            = flag.String("mode", "aggregate", "model mode [aggregate, aggregate-relaxed, per-unit]")
	scale           = flag.Float64("scale", 1.0, "global capacity scale factor")
	overrideStr     = flag.String("override", "", "per-depot capacity overrides [format: P1=10,P2=20]")
	kmax            = flag.Int("kmax", 0, "max depots per route (0 means no limit)")
	maxDistance     = flag.Float64("max-distance", 0, "distance threshold in km for pair compatibility (0 means disabled)")
	overflowPenalty = flag.Float64("overflow-penalty", 0, "penalty factor enabling the virtual overflow depot (0 means disabled)")
	backend         = flag.String("backend", "highs", "solver backend [highs, simplex]")
	timeLimit       = flag.Duration("time-limit", 300*time.Second, "solver wall-clock time limit")
	mipGap          = flag.Float64("gap", 0.02, "relative MIP gap tolerance")
	avgSpeed        = flag.Float64("avg-speed", 20, "average speed in km/h for overflow time pricing")
	topRoutes       = flag.Int("top-routes", 0, "solve only the top-n routes by demand, filtered in memory (0 means all)")

	// 敏感性分析
	scalesStr = flag.String("scales", "0.8,1.0,1.2", "capacity scale factors for the sensitivity sweep")

	// 输出与运行时
	outDir    = flag.String("out", "results", "output directory")
	logLevel  = flag.String("log-level", "info", "log level [debug, info, warn, error, fatal, panic]")
	pprofAddr = flag.String("pprof", "", "pprof listening address (empty means disable)")

	LOG_LEVELS = map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}

	log = logrus.StandardLogger().WithField("module", "main")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: depotassign <solve|sensitivity> [flags]\n")
	flag.PrintDefaults()
}

func main() {
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command := os.Args[1]
	if err := flag.CommandLine.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}
	if level, ok := LOG_LEVELS[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		logrus.Fatalf("invalid log level: %s", *logLevel)
	}

	if *pprofAddr != "" {
		// 长时间求解的实时性能分析入口
		startHTTPDebugger(*pprofAddr)
	}

	cfg, err := buildConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	ds, err := loadInputs()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *topRoutes > 0 {
		ds = ds.FilterTop(*topRoutes)
		log.Infof("dataset filtered in memory to top %d routes by demand", len(ds.Routes))
	}

	switch command {
	case "solve":
		os.Exit(cmdSolve(ds, cfg))
	case "sensitivity":
		os.Exit(cmdSensitivity(ds, cfg))
	default:
		usage()
		os.Exit(2)
	}
}

func cmdSolve(ds *assign.Dataset, cfg assign.Config) int {
	prb, err := assign.Build(ds, cfg)
	if err != nil {
		log.Errorf("model construction failed: %v", err)
		return 1
	}
	res, err := prb.Solve()
	if err != nil {
		log.Errorf("solve failed: %v", err)
		return 1
	}
	if err := writeSolveOutputs(*outDir, ds, res); err != nil {
		log.Errorf("write outputs: %v", err)
		return 1
	}
	log.Infof("solved: objective=%.2f, %d assignments, overflow=%.2f",
		res.Objective, len(res.Assignments), res.OverflowCount)
	return 0
}

func cmdSensitivity(ds *assign.Dataset, cfg assign.Config) int {
	scales, err := parseScales(*scalesStr)
	if err != nil {
		log.Errorf("invalid -scales: %v", err)
		return 1
	}
	records, basePrb, baseRes := assign.Sweep(ds, cfg, scales)
	if err := writeSweep(*outDir, records); err != nil {
		log.Errorf("write sweep table: %v", err)
		return 1
	}
	if basePrb == nil {
		log.Warn("no feasible scale factor, shadow price table not generated")
		return 1
	}
	shadow := assign.ShadowPrices(ds, cfg, basePrb, baseRes)
	if err := writeShadow(*outDir, shadow); err != nil {
		log.Errorf("write shadow price table: %v", err)
		return 1
	}
	log.Infof("sensitivity done: %d scales, %d depot perturbations", len(records), len(shadow))
	return 0
}

func buildConfig() (assign.Config, error) {
	cfg := assign.Config{
		Objective:       assign.Objective(*objective),
		CapacityScale:   *scale,
		OverflowPenalty: *overflowPenalty,
		KMax:            *kmax,
		MaxDistance:     *maxDistance,
		Backend:         *backend,
		TimeLimit:       *timeLimit,
		MIPGap:          *mipGap,
		AvgSpeedKmh:     *avgSpeed,
	}
	switch *mode {
	case "aggregate":
	case "aggregate-relaxed":
		cfg.Relax = true
	case "per-unit":
		cfg.PerUnit = true
	default:
		return cfg, fmt.Errorf("invalid mode: %q", *mode)
	}
	override, err := parseOverride(*overrideStr)
	if err != nil {
		return cfg, err
	}
	cfg.CapacityOverride = override
	return cfg, cfg.Validate()
}

func loadInputs() (*assign.Dataset, error) {
	paths := make([]*Path, 4)
	for i, s := range []string{*demandPathStr, *distancePathStr, *timePathStr, *capacityPathStr} {
		p, err := NewPath(s)
		if err != nil {
			return nil, fmt.Errorf("invalid input path %q: %w", s, err)
		}
		paths[i] = p
	}
	return LoadDataset(*mongoURI, paths[0], paths[1], paths[2], paths[3])
}

// parseOverride 解析P1=10,P2=20形式的容量覆写
func parseOverride(s string) (map[string]int, error) {
	if s == "" {
		return nil, nil
	}
	out := make(map[string]int)
	for _, kv := range strings.Split(s, ",") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid override entry: %q", kv)
		}
		v, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid override value in %q: %w", kv, err)
		}
		out[strings.TrimSpace(parts[0])] = v
	}
	return out, nil
}

func parseScales(s string) ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty scale list")
	}
	return out, nil
}

// 访问/debug/pprof/进入pprof实时分析页面
func startHTTPDebugger(addr string) {
	pprofHandler := http.NewServeMux()
	pprofHandler.Handle("/debug/pprof/", http.HandlerFunc(pprof.Index))
	pprofHandler.Handle("/debug/pprof/profile", http.HandlerFunc(pprof.Profile))
	server := &http.Server{Addr: addr, Handler: pprofHandler}
	go server.ListenAndServe()
}
