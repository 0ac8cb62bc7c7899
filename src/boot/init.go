package boot

import (
	"log"
	"tbs/src/db"
	"tbs/src/lib"
	"tbs/src/models"
	"tbs/src/utils"
	"time"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.Region{},
		&models.Venue{},
		&models.Event{},
		&models.EventTicket{},
		&models.Customer{},
		&models.Booking{},
		&models.Ticket{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Printf("Error initializing scheduler: %s\n", err.Error())
		return
	}
	id, err := lib.CreateCronJob(utils.SweepStaleProcessing, 5*time.Minute)
	if err != nil {
		log.Printf("Error scheduling stale-processing sweep: %s\n", err.Error())
		return
	}
	log.Printf("Scheduled stale-processing sweep: %s\n", *id)
	sched.Start()
}
